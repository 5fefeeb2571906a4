// Package ingest turns raw scenario input (CSV files, free-text special
// notes) into typed model values. The planning core never sees raw text.
package ingest

import (
	"strings"

	"fleetnav/internal/model"
)

var directionAbbrev = map[string]string{
	"north": "n",
	"south": "s",
	"east":  "e",
	"west":  "w",
}

// NormalizeLocation canonicalizes a street address so that the package
// file and the distance table agree on spelling: lowercase, collapsed
// whitespace, abbreviated compass directions, and hub aliases folded to
// model.Hub.
func NormalizeLocation(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return s
	}
	if strings.Contains(s, "western governors") || s == "hub" || s == "wgu" || s == "wgups" {
		return model.Hub
	}
	fields := strings.Fields(s)
	for i, f := range fields {
		if abbrev, ok := directionAbbrev[f]; ok {
			fields[i] = abbrev
		}
	}
	return strings.Join(fields, " ")
}
