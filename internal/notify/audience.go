// Package notify turns task lifecycle events into push notifications.
package notify

import "fmt"

type Event string

const (
	EventCreated            Event = "created"
	EventUpdated            Event = "updated"
	EventSubmittedForReview Event = "submitted_for_review"
	EventReviewPassed       Event = "review_passed"
	EventReviewRejected     Event = "review_rejected"
	EventCompleted          Event = "completed"
	EventDeleted            Event = "deleted"
	EventAccountDeleted     Event = "account_deleted"
)

// Snapshot is the assignment state an event is evaluated against.
type Snapshot struct {
	CreatorID uint64
	// Assigners are the users who attached the current assignments.
	Assigners []uint64
	// Before holds the assignees prior to the mutation; only Updated reads it.
	Before []uint64
	// After holds the current assignees. For Deleted it is read before the task row goes away.
	After []uint64
}

// Audience returns the distinct users to notify for event, in first-seen order.
func Audience(event Event, s Snapshot) []uint64 {
	switch event {
	case EventUpdated:
		return union(s.Before, s.After)
	case EventSubmittedForReview:
		reviewers := make([]uint64, 0, len(s.Assigners)+1)
		if s.CreatorID != 0 {
			reviewers = append(reviewers, s.CreatorID)
		}
		return union(reviewers, s.Assigners)
	case EventCreated, EventReviewRejected, EventReviewPassed, EventCompleted, EventDeleted:
		return union(s.After)
	default:
		return nil
	}
}

func union(sets ...[]uint64) []uint64 {
	seen := make(map[uint64]struct{})
	out := make([]uint64, 0)
	for _, set := range sets {
		for _, id := range set {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Message renders the title and body shown on the device.
func Message(event Event, subject string) (title, body string) {
	switch event {
	case EventCreated:
		return "New task", fmt.Sprintf("A new task has been assigned to you: %q", subject)
	case EventUpdated:
		return "Task updated", fmt.Sprintf("Task %q has been updated", subject)
	case EventSubmittedForReview:
		return "Task submitted for review", fmt.Sprintf("Task %q is waiting for your review", subject)
	case EventReviewRejected:
		return "Task returned", fmt.Sprintf("Task %q did not pass review and was returned to work", subject)
	case EventReviewPassed:
		return "Task accepted", fmt.Sprintf("Your task %q passed review and was accepted", subject)
	case EventCompleted:
		return "Task completed", fmt.Sprintf("Task %q has been completed", subject)
	case EventDeleted:
		return "Task deleted", fmt.Sprintf("Task %q has been deleted", subject)
	case EventAccountDeleted:
		return "Account deleted", "Your account has been deactivated"
	default:
		return "Notification", subject
	}
}
