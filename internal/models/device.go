package models

import "time"

// Device is a pseudonymous visitor within one site, keyed by the salted
// hash of the client fingerprint. Its mere existence marks the device as
// previously seen, which relaxes captcha enforcement.
type Device struct {
	SiteID      int64     `json:"site_id"`
	DeviceID    string    `json:"device_id"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}
