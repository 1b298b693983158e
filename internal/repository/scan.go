package repository

import (
	"fmt"
	"time"
)

// timeLayouts covers the text forms SQLite hands back for DATETIME columns.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

// utcTime scans a timestamp column from either driver into a UTC time.
type utcTime struct{ t *time.Time }

func (u utcTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*u.t = v.UTC()
		return nil
	case string:
		return u.parse(v)
	case []byte:
		return u.parse(string(v))
	case nil:
		*u.t = time.Time{}
		return nil
	}
	return fmt.Errorf("repository: cannot scan %T into time", src)
}

func (u utcTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*u.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("repository: unrecognised time %q", s)
}
