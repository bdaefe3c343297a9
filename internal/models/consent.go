package models

import (
	"errors"
	"time"
)

const (
	CategoryNecessary = "necessary"
	CategoryAds       = "ads"
	CategoryOther     = "other"
)

// ConsentCategories is the closed set of recognized choice keys.
var ConsentCategories = []string{CategoryNecessary, CategoryAds, CategoryOther}

var ErrNecessaryRefused = errors.New("necessary category must be accepted")

type Choices map[string]bool

// Validate rejects a choices map that refuses (or omits) the necessary
// category. Runs before sanitization so the error is visible to clients.
func (c Choices) Validate() error {
	if !c[CategoryNecessary] {
		return ErrNecessaryRefused
	}
	return nil
}

// SanitizeChoices drops unrecognized keys, keeping recognized boolean
// values unchanged. Unknown keys are not an error.
func SanitizeChoices(choices Choices) Choices {
	safe := make(Choices, len(ConsentCategories))
	for _, key := range ConsentCategories {
		if val, ok := choices[key]; ok {
			safe[key] = val
		}
	}
	return safe
}

// ConsentRecord is the latest decision for one (site, device, policy
// version) triple. Writes for the same triple overwrite in place.
type ConsentRecord struct {
	ID            int64     `json:"id"`
	SiteID        int64     `json:"site_id"`
	DeviceID      string    `json:"device_id"`
	PolicyVersion string    `json:"policy_version"`
	Choices       Choices   `json:"choices"`
	UserAgent     string    `json:"user_agent,omitempty"`
	IPTruncated   string    `json:"ip_truncated,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
