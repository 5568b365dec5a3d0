package canvas

import "strings"

// IsZoomEvent reports whether a calendar event references a virtual
// meeting in its title, description or location. Such events are stale
// artifacts after a content copy and must not carry over.
func IsZoomEvent(event CalendarEvent) bool {
	for _, field := range []string{event.Title, event.Description, event.LocationName} {
		if strings.Contains(strings.ToLower(field), "zoom") {
			return true
		}
	}
	return false
}
