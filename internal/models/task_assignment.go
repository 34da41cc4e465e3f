package models

import (
	"time"
)

type TaskAssignment struct {
	ID         uint64    `gorm:"primarykey" json:"id"`
	TaskID     uint64    `gorm:"not null;index" json:"task_id"`
	UserID     uint64    `gorm:"not null;index" json:"user_id"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
	AssignedBy *uint64   `json:"assigned_by"`

	// Relations
	Task     Task  `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	User     User  `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"user,omitempty"`
	Assigner *User `gorm:"foreignKey:AssignedBy;constraint:OnDelete:SET NULL" json:"-"`
}
