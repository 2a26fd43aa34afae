package utils

import (
	"net/url"
	"strings"
)

// imageJunk holds the characters left behind by Postgres array exports ({"a","b"})
var imageJunk = strings.NewReplacer("{", "", "}", "", `"`, "")

// ResolveImageURL returns the first http(s) URL found in an images payload.
// The payload may be a plain string, a comma-joined string, a brace/quote
// polluted string or an array of any of those. Returns "" when nothing fits.
func ResolveImageURL(images any) string {
	switch v := images.(type) {
	case nil:
		return ""
	case string:
		return firstURLInString(v)
	case *string:
		if v == nil {
			return ""
		}
		return firstURLInString(*v)
	case []string:
		for _, s := range v {
			if u := firstURLInString(s); u != "" {
				return u
			}
		}
	case []any:
		for _, item := range v {
			if u := ResolveImageURL(item); u != "" {
				return u
			}
		}
	}
	return ""
}

func firstURLInString(s string) string {
	for _, part := range strings.Split(imageJunk.Replace(s), ",") {
		candidate := strings.TrimSpace(part)
		if IsHTTPURL(candidate) {
			return candidate
		}
	}
	return ""
}

// IsHTTPURL reports whether s parses as an absolute http or https URL
func IsHTTPURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
