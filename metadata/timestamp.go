package metadata

import (
	"bytes"
	"encoding/json"
	"time"
)

// timestampLayouts are tried in order when decoding.  Gen3 backends send
// timestamps without a zone; those are taken to be UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp is a created or updated time, as sent by a backend.  Empty, null, or
// unrecognized values decode to the zero time rather than failing the object.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON decodes any of the supported layouts
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

// MarshalJSON encodes RFC 3339, or null for the zero time
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}
