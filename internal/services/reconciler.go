package services

import (
	"context"
	"fmt"

	"github.com/yukikurage/team-todo-api/internal/clock"
	"github.com/yukikurage/team-todo-api/internal/models"
	"github.com/yukikurage/team-todo-api/internal/repository"
)

// AssignmentDelta is one client-requested change to a task's assignments.
// A delta with an AssignmentID and ToDelete removes that assignment; a delta
// without an id (or with id 0) and ToDelete=false adds UserID. Anything else is ignored.
type AssignmentDelta struct {
	AssignmentID *uint64
	UserID       uint64
	ToDelete     bool
}

func (d AssignmentDelta) isDeletion() bool {
	return d.ToDelete && d.AssignmentID != nil
}

func (d AssignmentDelta) isInsertion() bool {
	return !d.ToDelete && (d.AssignmentID == nil || *d.AssignmentID == 0)
}

// ReconcileResult reports the rows a reconciliation removed and added.
type ReconcileResult struct {
	Removed []models.TaskAssignment
	Added   []models.TaskAssignment
}

type AssignmentReconciler struct {
	clock clock.Clock
}

func NewAssignmentReconciler(clk clock.Clock) *AssignmentReconciler {
	return &AssignmentReconciler{clock: clk}
}

// Reconcile applies deltas to task's assignments through store. Every lookup runs
// before the first write, so a *MissingUsersError leaves the store untouched.
// The caller owns the transaction store is bound to.
func (r *AssignmentReconciler) Reconcile(ctx context.Context, store repository.AssignmentStore, task *models.Task, deltas []AssignmentDelta, actorID uint64) (ReconcileResult, error) {
	var result ReconcileResult
	if len(deltas) == 0 {
		return result, nil
	}

	var deleteIDs []uint64
	var inserts []models.TaskAssignment

	now := r.clock.Now()
	var assignedBy *uint64
	if actorID != 0 {
		assignedBy = &actorID
	}

	for _, d := range deltas {
		switch {
		case d.isDeletion():
			deleteIDs = append(deleteIDs, *d.AssignmentID)
		case d.isInsertion():
			inserts = append(inserts, models.TaskAssignment{
				TaskID:     task.ID,
				UserID:     d.UserID,
				AssignedAt: now,
				AssignedBy: assignedBy,
			})
		}
	}

	// unknown or foreign ids simply match nothing
	removed, err := store.FindAssignmentsByIDs(ctx, task.ID, uniqueUint64(deleteIDs))
	if err != nil {
		return result, fmt.Errorf("failed to load assignments: %w", err)
	}

	referenced := make([]uint64, 0, len(inserts))
	for _, a := range inserts {
		referenced = append(referenced, a.UserID)
	}
	referenced = uniqueUint64(referenced)

	if len(referenced) > 0 {
		existing, err := store.ExistingActiveUserIDs(ctx, referenced)
		if err != nil {
			return result, fmt.Errorf("failed to verify assignees: %w", err)
		}
		if missing := difference(referenced, existing); len(missing) > 0 {
			return result, &MissingUsersError{IDs: missing}
		}
	}

	if err := store.RemoveAssignments(ctx, removed); err != nil {
		return result, fmt.Errorf("failed to remove assignments: %w", err)
	}
	if err := store.AddAssignments(ctx, inserts); err != nil {
		return result, fmt.Errorf("failed to add assignments: %w", err)
	}

	result.Removed = removed
	result.Added = inserts
	return result, nil
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}

// difference returns the values of a that are not in b, keeping a's order.
func difference(a, b []uint64) []uint64 {
	present := make(map[uint64]struct{}, len(b))
	for _, v := range b {
		present[v] = struct{}{}
	}

	var out []uint64
	for _, v := range a {
		if _, ok := present[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
