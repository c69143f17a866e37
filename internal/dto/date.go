package dto

import (
	"bytes"
	"fmt"
	"time"
)

// Date accepts either a calendar date ("2025-06-01") or a full RFC 3339
// timestamp. It marshals back as RFC 3339.
type Date struct {
	time.Time
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(bytes.Trim(b, `"`))
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
}

// NewDate wraps t.
func NewDate(t time.Time) Date { return Date{Time: t} }
