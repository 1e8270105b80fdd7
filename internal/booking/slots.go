package booking

import (
	"fmt"
	"strings"
	"time"
)

// slotGrid is the daily booking policy: half-hour starts from 09:00 to 17:30.
var slotGrid = [...]string{
	"09:00", "09:30", "10:00", "10:30",
	"11:00", "11:30", "12:00", "12:30",
	"13:00", "13:30", "14:00", "14:30",
	"15:00", "15:30", "16:00", "16:30",
	"17:00", "17:30",
}

// MinLeadTime is how far ahead of now a same-day slot must start.
const MinLeadTime = 30 * time.Minute

const dateLayout = "2006-01-02"

// Slot is a computed, never stored, view of one grid entry.
type Slot struct {
	Label        string // HH:MM
	DisplayLabel string // 12-hour form
	Available    bool
}

// SlotGrid returns a copy of the fixed slot labels in grid order.
func SlotGrid() []string {
	return append([]string(nil), slotGrid[:]...)
}

// ParseDate parses a calendar date in loc. It accepts YYYY-MM-DD and, for
// clients that send full timestamps, RFC 3339 (only the date part is kept).
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		return d, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc), nil
	}
	return time.Time{}, ErrInvalidDate
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}

// CalculateSlots annotates the full grid for the given day. A slot is
// unavailable when its label appears in occupied after normalization or,
// when day is today, when it starts less than MinLeadTime after now.
// Unparseable occupied values are ignored rather than blocking a slot.
func CalculateSlots(day, now time.Time, occupied []string) []Slot {
	now = now.In(day.Location())
	isToday := day.Year() == now.Year() && day.YearDay() == now.YearDay()
	cutoff := now.Add(MinLeadTime)

	taken := make(map[string]struct{}, len(occupied))
	for _, raw := range occupied {
		if label, ok := NormalizeTime(raw); ok {
			taken[label] = struct{}{}
		}
	}

	slots := make([]Slot, 0, len(slotGrid))
	for _, label := range slotGrid {
		start, _ := SlotStart(day, label)
		_, isTaken := taken[label]

		slots = append(slots, Slot{
			Label:        label,
			DisplayLabel: DisplayLabel(label),
			Available:    !isTaken && (!isToday || !start.Before(cutoff)),
		})
	}
	return slots
}

// AvailableSlots returns only the bookable slots of CalculateSlots, in grid order.
func AvailableSlots(day, now time.Time, occupied []string) []Slot {
	var available []Slot
	for _, s := range CalculateSlots(day, now, occupied) {
		if s.Available {
			available = append(available, s)
		}
	}
	return available
}

// SlotStart combines a day with a time label in the day's location.
func SlotStart(day time.Time, label string) (time.Time, error) {
	normalized, ok := NormalizeTime(label)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid time %q", label)
	}
	t, _ := time.Parse("15:04", normalized)
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}

var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3:04:05 PM",
}

// NormalizeTime converts a stored slot time to HH:MM. Both the 24-hour form
// ("09:00", "14:30:00") and the loose 12-hour form ("9:00 AM", "2:30pm") are
// accepted. It reports false when raw cannot be parsed.
func NormalizeTime(raw string) (string, bool) {
	s := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	if s == "" {
		return "", false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}

// DisplayLabel renders an HH:MM label as a zero-padded 12-hour time, e.g. "02:30 PM".
func DisplayLabel(label string) string {
	t, err := time.Parse("15:04", label)
	if err != nil {
		return label
	}
	return t.Format("03:04 PM")
}
