package models

import "time"

type UserDeviceToken struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	UserID      uint64    `gorm:"not null;index" json:"user_id"`
	DeviceToken string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"device_token"`
	DeviceType  string    `gorm:"type:varchar(50)" json:"device_type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
