package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RolePerformer Role = "performer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RolePerformer:
		return true
	}
	return false
}

// CanManage reports whether the role may create tasks and users.
func (r Role) CanManage() bool {
	return r == RoleAdmin || r == RoleManager
}

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	LastName     string         `gorm:"type:varchar(100);not null" json:"last_name"`
	FirstName    string         `gorm:"type:varchar(100);not null" json:"first_name"`
	Surname      string         `gorm:"type:varchar(100)" json:"surname"`
	Login        string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"login"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         Role           `gorm:"type:varchar(20);not null;default:'performer'" json:"role"`
	// CreatedBy is nil for root accounts.
	CreatedBy    *uint64        `gorm:"index" json:"created_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsDeleted reports whether the user has been soft-deleted.
func (u User) IsDeleted() bool {
	return u.DeletedAt.Valid
}
