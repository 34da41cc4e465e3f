package models

type TaskType struct {
	ID           uint64 `gorm:"primarykey" json:"id"`
	Name         string `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	IsAccessible bool   `gorm:"not null;default:true" json:"is_accessible"`
}
