package models

// CalendarEvent is a raw portal event. The portal's event payload is
// open-ended (lesson metadata, participants, attachments) so it is kept as
// loose JSON with accessors for the fields the client relies on.
type CalendarEvent map[string]interface{}

// StartDateTime returns the event's ISO start timestamp, or "" if absent.
func (e CalendarEvent) StartDateTime() string {
	s, _ := e["startDateTime"].(string)
	return s
}

// EndDateTime returns the event's ISO end timestamp, or "" if absent.
func (e CalendarEvent) EndDateTime() string {
	s, _ := e["endDateTime"].(string)
	return s
}

// BelongsTo reports whether the event's belongsToProfiles list contains the
// given institution profile id.
func (e CalendarEvent) BelongsTo(profileID int) bool {
	profiles, _ := e["belongsToProfiles"].([]interface{})
	for _, p := range profiles {
		if id, ok := p.(float64); ok && int(id) == profileID {
			return true
		}
	}
	return false
}
