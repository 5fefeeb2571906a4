package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Constraint is the typed outcome of parsing one special note. Zero
// values mean "no such constraint".
type Constraint struct {
	AvailableAt       time.Time
	OnlyVehicle       int
	GroupWith         []int
	CorrectedLocation string
	CorrectionAt      time.Time
}

// Correction timing for the known wrong-address case: the fix arrives
// 2h20m into the day; delayed flights without an explicit time land
// 65 minutes in.
const (
	correctionOffset      = 140 * time.Minute
	delayedFallbackOffset = 65 * time.Minute
)

// correctedLocation is the authoritative replacement address for
// wrong-address notes, already normalized.
const correctedLocation = "410 s state st"

var (
	clockRe   = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})\s*(am|pm)?`)
	vehicleRe = regexp.MustCompile(`(?i)\btruck\s+(\d+)\b`)
	idListRe  = regexp.MustCompile(`\d+`)
)

// ParseNote classifies a free-text special note into a typed Constraint.
// start anchors relative offsets (delayed fallback, correction instant).
// Unrecognized notes yield the zero Constraint; they are informational.
func ParseNote(note string, start time.Time) Constraint {
	var c Constraint
	lower := strings.ToLower(strings.TrimSpace(note))
	if lower == "" {
		return c
	}
	switch {
	case strings.Contains(lower, "delayed") || strings.Contains(lower, "will not arrive"):
		if at, ok := parseClock(lower, start); ok {
			c.AvailableAt = at
		} else {
			c.AvailableAt = start.Add(delayedFallbackOffset)
		}
	case strings.Contains(lower, "wrong address"):
		c.CorrectedLocation = correctedLocation
		c.CorrectionAt = start.Add(correctionOffset)
	case vehicleRe.MatchString(lower):
		m := vehicleRe.FindStringSubmatch(lower)
		if id, err := strconv.Atoi(m[1]); err == nil {
			c.OnlyVehicle = id
		}
	case strings.Contains(lower, "delivered with"):
		_, rest, _ := strings.Cut(lower, "delivered with")
		for _, tok := range idListRe.FindAllString(rest, -1) {
			if id, err := strconv.Atoi(tok); err == nil {
				c.GroupWith = append(c.GroupWith, id)
			}
		}
	}
	return c
}

// ParseDeadline turns a deadline cell into an instant on the scenario
// day. "EOD" (or blank) means no deadline and returns the zero time.
func ParseDeadline(cell string, day time.Time) (time.Time, error) {
	s := strings.TrimSpace(cell)
	if s == "" || strings.EqualFold(s, "eod") {
		return time.Time{}, nil
	}
	at, ok := parseClock(s, day)
	if !ok {
		return time.Time{}, fmt.Errorf("parse deadline %q: no clock time found", cell)
	}
	return at, nil
}

// parseClock finds the first h:mm[am|pm] in s and places it on the same
// day as anchor.
func parseClock(s string, anchor time.Time) (time.Time, bool) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	if hour > 23 || min > 59 {
		return time.Time{}, false
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	y, mo, d := anchor.Date()
	return time.Date(y, mo, d, hour, min, 0, 0, anchor.Location()), true
}
