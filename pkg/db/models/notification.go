package models

import (
	"time"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
type Notification struct {
	ID           uint64                 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	UserID       uint64                 `gorm:"column:user_id;not null;index" json:"user_id"`
	AssignmentID *uint64                `gorm:"column:assignment_id" json:"assignment_id,omitempty"`
	Type         enums.NotificationType `gorm:"column:type;type:text;not null" json:"type"`
	Title        string                 `gorm:"column:title;not null" json:"title"`
	Message      string                 `gorm:"column:message;not null" json:"message"`
	Link         *string                `gorm:"column:link" json:"link,omitempty"`
	ReadAt       *time.Time             `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt    time.Time              `gorm:"column:created_at;not null" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
