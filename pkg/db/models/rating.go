package models

import "time"

// Rating is a client's score for a completed assignment, one per pair.
type Rating struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	AssignmentID uint64    `gorm:"column:assignment_id;not null;uniqueIndex:ratings_assignment_client_key" json:"assignment_id"`
	ClientID     uint64    `gorm:"column:client_id;not null;uniqueIndex:ratings_assignment_client_key" json:"client_id"`
	ConsultantID uint64    `gorm:"column:consultant_id;not null;index" json:"consultant_id"`
	Rating       int       `gorm:"column:rating;not null" json:"rating"`
	Review       *string   `gorm:"column:review" json:"review,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Rating) TableName() string { return "ratings" }

// ConsultantProfile holds the denormalised rating aggregate for a consultant.
type ConsultantProfile struct {
	ConsultantID  uint64    `gorm:"column:consultant_id;primaryKey;autoIncrement:false" json:"consultant_id"`
	AverageRating float64   `gorm:"column:average_rating;not null;default:0" json:"average_rating"`
	TotalRatings  int64     `gorm:"column:total_ratings;not null;default:0" json:"total_ratings"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (ConsultantProfile) TableName() string { return "consultant_profiles" }
