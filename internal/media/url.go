// Package media validates image URLs and hosts the image vendor and
// durable storage clients.
package media

import (
	"net/url"
	"strings"
)

// placeholderMarkers are substrings of stock "no image" URLs used by news providers
var placeholderMarkers = []string{
	"placeholder",
	"default-image",
	"default_image",
	"no-image",
	"noimage",
	"no_image",
	"image-not-found",
	"spacer.gif",
	"blank.gif",
	"1x1.png",
}

// ValidURL reports whether raw is a non-empty absolute http(s) URL with a host
func ValidURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// IsPlaceholder reports whether the URL looks like a provider's stock image
func IsPlaceholder(raw string) bool {
	lower := strings.ToLower(raw)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// UsableImage reports whether raw is a valid, non-placeholder image URL
func UsableImage(raw string) bool {
	return ValidURL(raw) && !IsPlaceholder(raw)
}

// ValidPtr returns a copy of *raw when it is a valid URL, else nil
func ValidPtr(raw *string) *string {
	if raw == nil || !ValidURL(*raw) {
		return nil
	}
	v := strings.TrimSpace(*raw)
	return &v
}
