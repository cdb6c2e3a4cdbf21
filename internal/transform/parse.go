package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/2006",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseFloat treats a blank cell as zero.
func parseFloat(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

// parseInt accepts float notation ("154000.0") and truncates toward zero.
func parseInt(s string) (int64, error) {
	f, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// parseNullFloat maps a blank cell to NULL.
func parseNullFloat(s string) (null.Float, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return null.Float{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}, fmt.Errorf("invalid number %q", s)
	}
	return null.FloatFrom(f), nil
}

func parseEpoch(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return time.Unix(int64(f), 0).UTC(), nil
}

func parseBool(s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", s)
	}
	return b, nil
}
