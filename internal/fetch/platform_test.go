package fetch

import (
	"testing"

	"github.com/jonathan/creator-persona/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		expected types.Platform
	}{
		{"https://www.youtube.com/@janedoe", types.PlatformYouTube},
		{"https://m.youtube.com/watch?v=abc", types.PlatformYouTube},
		{"https://youtu.be/abc", types.PlatformYouTube},
		{"https://www.instagram.com/jane.doe/", types.PlatformInstagram},
		{"https://example.com/jane", ""},
		{"::not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		name     string
		platform types.Platform
		input    string
		expected string
	}{
		{"youtube bare name", types.PlatformYouTube, "janedoe", "@janedoe"},
		{"youtube handle", types.PlatformYouTube, "@janedoe", "@janedoe"},
		{"youtube handle URL", types.PlatformYouTube, "https://www.youtube.com/@janedoe/videos", "@janedoe"},
		{"youtube channel URL", types.PlatformYouTube, "https://www.youtube.com/channel/UC1234567890123456789012", "UC1234567890123456789012"},
		{"youtube channel id", types.PlatformYouTube, "UC1234567890123456789012", "UC1234567890123456789012"},
		{"instagram URL", types.PlatformInstagram, "https://www.instagram.com/Jane.Doe/", "jane.doe"},
		{"instagram at-name", types.PlatformInstagram, "@jane.doe", "jane.doe"},
		{"empty", types.PlatformInstagram, "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeHandle(tt.platform, tt.input))
		})
	}
}
