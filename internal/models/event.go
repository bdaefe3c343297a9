package models

import "time"

// NecessaryOnlyEvents lists event types admitted even without a recorded
// consent decision.
var NecessaryOnlyEvents = map[string]struct{}{
	"page_view_minimal": {},
	"heartbeat":         {},
}

// Event is one telemetry occurrence as sent by the client script.
// TS is an epoch-milliseconds number; it is coerced leniently because
// embedded scripts are sloppy about numeric types.
type Event struct {
	Type     string         `json:"type" validate:"required"`
	URL      string         `json:"url,omitempty"`
	Referrer string         `json:"referrer,omitempty"`
	UA       string         `json:"ua,omitempty"`
	TS       any            `json:"ts,omitempty"`
	Purpose  string         `json:"purpose,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// StoredEvent is the persisted form of an admitted event.
type StoredEvent struct {
	ID          int64     `json:"id"`
	SiteID      int64     `json:"site_id"`
	DeviceID    string    `json:"device_id"`
	Type        string    `json:"type"`
	Purpose     string    `json:"purpose,omitempty"`
	URL         string    `json:"url,omitempty"`
	Referrer    string    `json:"referrer,omitempty"`
	UA          string    `json:"ua,omitempty"`
	IPTruncated string    `json:"ip_truncated,omitempty"`
	TS          time.Time `json:"ts"`
	Payload     []byte    `json:"payload,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
