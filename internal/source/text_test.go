package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"<p>Hello <b>world</b></p>", "Hello world"},
		{"line<br>break", "line break"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"  lots\n\tof   space ", "lots of space"},
		{`<script>alert(1)</script>Safe`, "Safe"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanText(tt.in), tt.in)
	}
}

func TestParseTime(t *testing.T) {
	assert.Equal(t, time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC), ParseTime("2025-03-04T05:06:07Z"))
	assert.Equal(t, time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC), ParseTime("2025-03-04 05:06:07"))
	assert.True(t, ParseTime("").IsZero())
	assert.True(t, ParseTime("yesterday").IsZero())
}
