package models

import (
	"time"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
)

// AssignmentMessage is an append-only note on an assignment. System notices
// carry no sender.
type AssignmentMessage struct {
	ID                 uint64            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	AssignmentID       uint64            `gorm:"column:assignment_id;not null;index" json:"assignment_id"`
	SenderID           *uint64           `gorm:"column:sender_id" json:"sender_id,omitempty"`
	Message            string            `gorm:"column:message;not null" json:"message"`
	Attachment         *string           `gorm:"column:attachment" json:"-"`
	AttachmentFilename *string           `gorm:"column:attachment_filename" json:"attachment_filename,omitempty"`
	MessageType        enums.MessageType `gorm:"column:message_type;type:text;not null;default:'general'" json:"message_type"`
	CreatedAt          time.Time         `gorm:"column:created_at;not null" json:"created_at"`
}

func (AssignmentMessage) TableName() string { return "assignment_messages" }
