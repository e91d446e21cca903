package views

import (
	"fmt"
	"time"
)

// FormatTimeAgo renders the relative label used by the feed. Times in the
// future (clock skew) read as "Just now".
func FormatTimeAgo(at, now time.Time) string {
	if at.IsZero() {
		return "Unknown"
	}
	secs := int64(now.Sub(at) / time.Second)
	switch {
	case secs < 10:
		return "Just now"
	case secs < 60:
		return fmt.Sprintf("%ds ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm ago", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%dh ago", secs/3600)
	case secs < 604800:
		return fmt.Sprintf("%dd ago", secs/86400)
	}
	return at.UTC().Format("2006-01-02")
}

// FormatExact renders an absolute UTC timestamp.
func FormatExact(at time.Time) string {
	if at.IsZero() {
		return "Unknown"
	}
	return at.UTC().Format("2006-01-02 15:04:05 UTC")
}
