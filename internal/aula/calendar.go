package aula

import (
	"fmt"
	"sort"
	"time"

	"aulabot/internal/models"
)

// StructureByDay groups calendar events by the UTC date of their start time,
// annotates each with a "formatted_time" display string ("HH:MM - HH:MM")
// and sorts every day's events ascending by start time. The input slice is
// left untouched; events are copied before annotation. Timestamps may carry
// either a literal Z suffix or an explicit offset.
func StructureByDay(events []models.CalendarEvent) (map[string][]models.CalendarEvent, error) {
	byDay := make(map[string][]models.CalendarEvent)
	for _, event := range events {
		start, err := parsePortalTime(event.StartDateTime())
		if err != nil {
			return nil, fmt.Errorf("bad startDateTime %q: %w", event.StartDateTime(), err)
		}
		end, err := parsePortalTime(event.EndDateTime())
		if err != nil {
			return nil, fmt.Errorf("bad endDateTime %q: %w", event.EndDateTime(), err)
		}

		annotated := make(models.CalendarEvent, len(event)+1)
		for key, value := range event {
			annotated[key] = value
		}
		annotated["formatted_time"] = start.Format("15:04") + " - " + end.Format("15:04")

		day := start.UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], annotated)
	}

	for _, dayEvents := range byDay {
		sort.Slice(dayEvents, func(i, j int) bool {
			return dayEvents[i].StartDateTime() < dayEvents[j].StartDateTime()
		})
	}
	return byDay, nil
}

func parsePortalTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}
