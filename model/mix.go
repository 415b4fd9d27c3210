package model

import "time"

// Mix represents a finished DJ mix. Managed through GORM.
type Mix struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionToken string    `gorm:"size:64;index" json:"sessionToken"`
	Object       string    `gorm:"size:255" json:"object"` // MinIO object name under mixes/
	FilePath     string    `gorm:"size:512" json:"-"`      // Local output path
	TrackIDs     string    `gorm:"size:255" json:"trackIds"`
	Duration     float32   `json:"duration"` // Duration in seconds
	TransitionA  float32   `json:"transitionA"`
	TransitionB  float32   `json:"transitionB"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName 指定表名
func (Mix) TableName() string {
	return "mixes"
}
