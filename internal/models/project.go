package models

import "time"

type ProjectStatus string

const (
	StatusActive   ProjectStatus = "Active"
	StatusPaused   ProjectStatus = "Paused"
	StatusArchived ProjectStatus = "Archived"
)

// ProjectStatuses lists the statuses in display order.
var ProjectStatuses = []ProjectStatus{StatusActive, StatusPaused, StatusArchived}

func (s ProjectStatus) Valid() bool {
	for _, status := range ProjectStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Project struct {
	ID          string        `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"not null" json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `gorm:"not null;index" json:"status"`
	Owner       string        `json:"owner"`
	Position    int           `gorm:"not null;default:0" json:"-"` // seed order
	CreatedAt   time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updatedAt"`

	// Relationships
	Members    []Member   `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Activities []Activity `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}

func (Project) TableName() string { return "projects" }

// ProjectPatch is a partial update; nil fields are left untouched.
type ProjectPatch struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
}

func (p ProjectPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil
}

// Apply merges the patch into a copy of project and stamps UpdatedAt.
func (p ProjectPatch) Apply(project Project, now time.Time) Project {
	if p.Name != nil {
		project.Name = *p.Name
	}
	if p.Description != nil {
		project.Description = *p.Description
	}
	if p.Status != nil {
		project.Status = *p.Status
	}
	project.UpdatedAt = now
	return project
}
