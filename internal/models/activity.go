package models

import "time"

// Activity is an append-only log entry for a project.
type Activity struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	ProjectID   string    `gorm:"primaryKey;index" json:"-"`
	Type        string    `gorm:"not null" json:"type"`
	Description string    `json:"description"`
	User        string    `gorm:"column:actor" json:"user"`
	Timestamp   time.Time `gorm:"column:occurred_at" json:"timestamp"`
}

func (Activity) TableName() string { return "activities" }
