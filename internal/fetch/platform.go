// Package fetch - platform.go recognises creator profile URLs and handles.
package fetch

import (
	"net/url"
	"strings"

	"github.com/jonathan/creator-persona/internal/types"
)

// DetectPlatform identifies the content platform from a URL. It returns ""
// for anything that is not a YouTube or Instagram address.
func DetectPlatform(urlStr string) types.Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	host = strings.TrimPrefix(host, "m.")

	switch {
	case host == "youtube.com" || host == "youtu.be" || strings.HasSuffix(host, ".youtube.com"):
		return types.PlatformYouTube
	case host == "instagram.com" || strings.HasSuffix(host, ".instagram.com"):
		return types.PlatformInstagram
	default:
		return ""
	}
}

// NormalizeHandle turns a profile URL or loosely typed handle into the form the
// platform fetchers expect: "@name" or a "UC..." channel ID for YouTube and a
// bare username for Instagram.
func NormalizeHandle(platform types.Platform, input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	if strings.Contains(input, "://") {
		if parsed, err := url.Parse(input); err == nil {
			segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
			switch {
			case platform == types.PlatformYouTube && len(segments) >= 2 && (segments[0] == "channel" || segments[0] == "c" || segments[0] == "user"):
				input = segments[1]
				if segments[0] == "channel" {
					return input
				}
			case len(segments) >= 1 && segments[0] != "":
				input = segments[0]
			}
		}
	}

	switch platform {
	case types.PlatformYouTube:
		if strings.HasPrefix(input, "UC") && len(input) == 24 {
			return input
		}
		return "@" + strings.TrimPrefix(input, "@")
	case types.PlatformInstagram:
		return strings.ToLower(strings.TrimPrefix(input, "@"))
	default:
		return input
	}
}
