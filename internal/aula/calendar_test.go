package aula

import (
	"testing"

	"aulabot/internal/models"
)

func TestStructureByDayGroupsAndSorts(t *testing.T) {
	events := []models.CalendarEvent{
		{"id": float64(2), "title": "Svømning", "startDateTime": "2025-03-17T10:00:00Z", "endDateTime": "2025-03-17T11:00:00Z"},
		{"id": float64(3), "title": "Teater", "startDateTime": "2025-03-18T09:00:00+00:00", "endDateTime": "2025-03-18T10:30:00+00:00"},
		{"id": float64(1), "title": "Morgensamling", "startDateTime": "2025-03-17T08:00:00Z", "endDateTime": "2025-03-17T09:00:00Z"},
	}

	byDay, err := StructureByDay(events)
	if err != nil {
		t.Fatalf("StructureByDay: %v", err)
	}
	if len(byDay) != 2 {
		t.Fatalf("expected 2 date keys, got %d", len(byDay))
	}

	march17 := byDay["2025-03-17"]
	if len(march17) != 2 {
		t.Fatalf("expected 2 events on 2025-03-17, got %d", len(march17))
	}
	if march17[0]["id"] != float64(1) || march17[1]["id"] != float64(2) {
		t.Errorf("expected events sorted by start time, got %v", march17)
	}
	if march17[0]["formatted_time"] != "08:00 - 09:00" {
		t.Errorf("expected formatted_time 08:00 - 09:00, got %v", march17[0]["formatted_time"])
	}

	march18 := byDay["2025-03-18"]
	if len(march18) != 1 {
		t.Fatalf("expected 1 event on 2025-03-18, got %d", len(march18))
	}
	if march18[0]["formatted_time"] != "09:00 - 10:30" {
		t.Errorf("expected formatted_time 09:00 - 10:30, got %v", march18[0]["formatted_time"])
	}
}

func TestStructureByDayLeavesInputUntouched(t *testing.T) {
	events := []models.CalendarEvent{
		{"id": float64(1), "startDateTime": "2025-03-17T08:00:00Z", "endDateTime": "2025-03-17T09:00:00Z"},
	}
	if _, err := StructureByDay(events); err != nil {
		t.Fatalf("StructureByDay: %v", err)
	}
	if _, ok := events[0]["formatted_time"]; ok {
		t.Error("input event was annotated in place")
	}
}

func TestStructureByDayIsIdempotent(t *testing.T) {
	events := []models.CalendarEvent{
		{"id": float64(1), "startDateTime": "2025-03-17T08:00:00Z", "endDateTime": "2025-03-17T09:00:00Z", "formatted_time": "08:00 - 09:00"},
	}
	byDay, err := StructureByDay(events)
	if err != nil {
		t.Fatalf("StructureByDay: %v", err)
	}
	if byDay["2025-03-17"][0]["formatted_time"] != "08:00 - 09:00" {
		t.Errorf("re-structuring changed formatted_time: %v", byDay["2025-03-17"][0]["formatted_time"])
	}
}

func TestStructureByDayGroupsByUTCDate(t *testing.T) {
	// 00:30 at +02:00 is still the previous day in UTC.
	events := []models.CalendarEvent{
		{"id": float64(1), "startDateTime": "2025-03-18T00:30:00+02:00", "endDateTime": "2025-03-18T01:30:00+02:00"},
	}
	byDay, err := StructureByDay(events)
	if err != nil {
		t.Fatalf("StructureByDay: %v", err)
	}
	if _, ok := byDay["2025-03-17"]; !ok {
		t.Fatalf("expected grouping under 2025-03-17, got keys %v", keys(byDay))
	}
	if byDay["2025-03-17"][0]["formatted_time"] != "00:30 - 01:30" {
		t.Errorf("expected wall-clock formatted_time, got %v", byDay["2025-03-17"][0]["formatted_time"])
	}
}

func TestStructureByDayRejectsBadTimestamps(t *testing.T) {
	events := []models.CalendarEvent{
		{"id": float64(1), "startDateTime": "yesterday", "endDateTime": "2025-03-17T09:00:00Z"},
	}
	if _, err := StructureByDay(events); err == nil {
		t.Fatal("expected error for unparsable startDateTime")
	}
}

func keys(m map[string][]models.CalendarEvent) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
