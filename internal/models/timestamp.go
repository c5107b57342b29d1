package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp decodes a JSON timestamp. RFC 3339 strings, zone-less
// ISO strings (taken as UTC) and epoch milliseconds are accepted. A missing
// or null value yields the zero time.
func ParseTimestamp(raw json.RawMessage) (time.Time, error) {
	if isNull(raw) {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		ms, perr := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
		if perr != nil {
			return time.Time{}, fmt.Errorf("timestamp %s: not a string or epoch millis", raw)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: unrecognized format", s)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
