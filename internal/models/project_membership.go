package models

// Member is a person attached to a project. Read-only inside the app.
type Member struct {
	ID        string `gorm:"primaryKey" json:"id"`
	ProjectID string `gorm:"primaryKey;index" json:"-"`
	Name      string `gorm:"not null" json:"name"`
	Email     string `gorm:"not null" json:"email"`
	Role      string `gorm:"not null" json:"role"`
	Avatar    string `json:"avatar,omitempty"`
	Position  int    `gorm:"not null;default:0" json:"-"`
}

func (Member) TableName() string { return "members" }
