// Package contest defines the canonical contest record shared by every
// source adapter, the store and the booking engine.
package contest

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies a contest platform.
type Platform string

const (
	Codeforces Platform = "Codeforces"
	LeetCode   Platform = "LeetCode"
	CodeChef   Platform = "CodeChef"
)

// AllPlatforms returns every supported platform.
func AllPlatforms() []Platform {
	return []Platform{Codeforces, LeetCode, CodeChef}
}

// Tag returns the lowercase prefix used in contest ids.
func (p Platform) Tag() string {
	return strings.ToLower(string(p))
}

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	for _, known := range AllPlatforms() {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePlatform accepts a display name or tag in any case.
func ParsePlatform(s string) (Platform, error) {
	s = strings.TrimSpace(s)
	for _, p := range AllPlatforms() {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Contest is the normalized contest record.
type Contest struct {
	ID              string    `json:"id"`
	Platform        Platform  `json:"platform"`
	Title           string    `json:"title"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	URL             string    `json:"url,omitempty"`
	FetchedAt       time.Time `json:"fetched_at"`
}

// Duration returns the contest length.
func (c Contest) Duration() time.Duration {
	return time.Duration(c.DurationSeconds) * time.Second
}

// End returns the instant the contest finishes.
func (c Contest) End() time.Time {
	return c.StartTime.Add(c.Duration())
}

// Summary is the calendar title for the contest.
func (c Contest) Summary() string {
	return fmt.Sprintf("%s: %s", c.Platform, c.Title)
}

// NewID builds the idempotency key "{tag}_{nativeID}".
func NewID(p Platform, nativeID string) string {
	return p.Tag() + "_" + nativeID
}

// SplitID recovers the platform and native id from a contest id.
func SplitID(id string) (Platform, string, error) {
	tag, native, ok := strings.Cut(id, "_")
	if !ok || native == "" {
		return "", "", fmt.Errorf("malformed contest id %q", id)
	}
	for _, p := range AllPlatforms() {
		if p.Tag() == tag {
			return p, native, nil
		}
	}
	return "", "", fmt.Errorf("unknown platform tag in contest id %q", id)
}
