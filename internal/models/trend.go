package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Trend is a trending topic record written by the ingestion process.
// The pipeline only ever flips Processed.
type Trend struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Topic     string    `gorm:"type:text" json:"topic"`
	ImageURL  *string   `json:"image_url"`
	Processed bool      `gorm:"index;default:false" json:"processed"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns a UUID when ingestion did not supply one
func (t *Trend) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
