package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GistStatus represents the lifecycle state of a published gist
type GistStatus string

const (
	GistStatusPublished GistStatus = "published"
)

// Gist is the durable AI-narrated content record produced by the publisher.
// TrendID is unique when set, so a trend can back at most one gist.
type Gist struct {
	ID              string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Topic           string     `gorm:"type:text;not null" json:"topic"`
	TopicCategory   string     `gorm:"index" json:"topic_category"`
	Headline        string     `gorm:"type:text;not null" json:"headline"`
	Context         string     `gorm:"type:text;not null" json:"context"`
	Narration       string     `gorm:"type:text;not null" json:"narration"`
	ImageURL        *string    `json:"image_url"`
	SourceURL       *string    `json:"source_url"`
	NewsPublishedAt *time.Time `json:"news_published_at"`
	TrendID         *string    `gorm:"uniqueIndex;type:varchar(36)" json:"trend_id"`
	AudioURL        *string    `json:"audio_url"`
	Status          GistStatus `gorm:"default:'published'" json:"status"`
	PublishedAt     time.Time  `gorm:"index" json:"published_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	Meta            JSON       `gorm:"type:json" json:"meta"`
}

// BeforeCreate assigns the gist ID
func (g *Gist) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
