package models

import (
	"time"
)

type Task struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	Title       string     `gorm:"type:varchar(100);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueDate     *time.Time `json:"due_date"`
	DueTime     *string    `gorm:"type:varchar(5)" json:"due_time"`
	StartDate   *time.Time `json:"start_date"`
	IsImportant bool       `gorm:"not null;default:false" json:"is_important"`
	TypeID      *uint64    `gorm:"index" json:"type_id"`
	// Status is true once the creator has signed the task off.
	Status      bool       `gorm:"not null;default:false;index" json:"status"`
	CreatorID   uint64     `gorm:"column:created_by;not null;index" json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
	IsConfirmed bool       `gorm:"not null;default:false" json:"is_confirmed"`
	Version     uint64     `gorm:"not null;default:1" json:"version"`

	// Relations
	Creator     User             `gorm:"foreignKey:CreatorID;constraint:OnDelete:RESTRICT" json:"creator,omitempty"`
	Type        *TaskType        `gorm:"foreignKey:TypeID;constraint:OnDelete:SET NULL" json:"type,omitempty"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"assignments,omitempty"`
}

// IsCompleted reports whether the task has passed review and been closed.
func (t Task) IsCompleted() bool {
	return t.CompletedAt != nil && t.IsConfirmed
}

// AssigneeIDs returns the distinct user ids of the loaded assignments in load order.
func (t Task) AssigneeIDs() []uint64 {
	seen := make(map[uint64]struct{}, len(t.Assignments))
	ids := make([]uint64, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		if _, ok := seen[a.UserID]; ok {
			continue
		}
		seen[a.UserID] = struct{}{}
		ids = append(ids, a.UserID)
	}
	return ids
}
