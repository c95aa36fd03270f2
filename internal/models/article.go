package models

import (
	"strings"
	"time"
)

// SourceArticle is a news article normalized from a provider payload
type SourceArticle struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	Image       string    `json:"image"`
	Source      string    `json:"source"`   // publisher name, e.g. "Reuters"
	Provider    string    `json:"provider"` // provider that returned it, e.g. "gnews"
	PublishedAt time.Time `json:"published_at"`
}

// GeneratedContent is the structured payload produced by the content generator.
// The Source* fields record provenance when a grounding article was used.
type GeneratedContent struct {
	Headline          string     `json:"headline"`
	Summary           string     `json:"summary"`
	Context           string     `json:"context"`
	Narration         string     `json:"narration"`
	ImageKeyword      string     `json:"image_keyword"`
	AIGeneratedImage  *string    `json:"ai_generated_image,omitempty"`
	UsedGrounding     bool       `json:"used_grounding"`
	SourceURL         *string    `json:"source_url,omitempty"`
	SourceTitle       *string    `json:"source_title,omitempty"`
	SourceName        *string    `json:"source_name,omitempty"`
	SourcePublishedAt *time.Time `json:"source_published_at,omitempty"`
	SourceImageURL    *string    `json:"source_image_url,omitempty"`
}

// MissingFields returns the names of required generated fields that are blank
func (c *GeneratedContent) MissingFields() []string {
	var missing []string
	if isBlank(c.Headline) {
		missing = append(missing, "headline")
	}
	if isBlank(c.Context) {
		missing = append(missing, "context")
	}
	if isBlank(c.Narration) {
		missing = append(missing, "narration")
	}
	if isBlank(c.ImageKeyword) {
		missing = append(missing, "image_keyword")
	}
	return missing
}

// Complete reports whether all four required fields are present
func (c *GeneratedContent) Complete() bool {
	return len(c.MissingFields()) == 0
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
