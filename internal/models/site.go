package models

import "time"

// Site is one tenant of the consent script. Salt is immutable after
// creation; changing PolicyVersion invalidates all stored consent.
type Site struct {
	ID              int64     `json:"id"`
	Key             string    `json:"key"`
	Salt            string    `json:"salt"`
	PolicyVersion   string    `json:"policy_version"`
	OriginWhitelist []string  `json:"origin_whitelist"`
	CaptchaProvider string    `json:"captcha_provider,omitempty"`
	CaptchaSiteKey  string    `json:"captcha_site_key,omitempty"`
	CaptchaSecret   string    `json:"captcha_secret,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s *Site) HasCaptcha() bool {
	return s.CaptchaProvider != ""
}
