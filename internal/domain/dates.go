package domain

import (
	"fmt"
	"strings"
	"time"
)

var restockDateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

// ParseRestockDate parses a restock date in any accepted layout, interpreting zone-less values in loc.
func ParseRestockDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("restock date is empty")
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range restockDateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised restock date %q", value)
}
