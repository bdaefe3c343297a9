package models

import (
	"errors"
	"fmt"

	"cgd/internal/identity"

	"github.com/gookit/validate"
)

// CaptchaPayload carries a solved challenge token alongside a consent or
// collect request.
type CaptchaPayload struct {
	Provider string `json:"provider" validate:"required|in:recaptcha,hcaptcha,turnstile"`
	Token    string `json:"token" validate:"required|minLen:5"`
}

// ConsentPayload is the POST /consent body. Fallback carries raw browser
// traits for clients without a fingerprinting provider; the server derives
// the visitor id from them when VisitorID is absent.
type ConsentPayload struct {
	SiteKey       string                    `json:"site_key" validate:"required"`
	PolicyVersion string                    `json:"policy_version" validate:"required"`
	Choices       Choices                   `json:"choices"`
	VisitorID     string                    `json:"visitorId"`
	Fallback      *identity.FallbackSignals `json:"fallback,omitempty"`
	Captcha       *CaptchaPayload           `json:"captcha,omitempty"`
}

func (p *ConsentPayload) Validate() error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if err := validateVisitor(p.VisitorID, p.Fallback); err != nil {
		return err
	}
	if len(p.Choices) == 0 {
		return errors.New("choices is required")
	}
	if err := p.Choices.Validate(); err != nil {
		return err
	}
	return validateCaptcha(p.Captcha)
}

// CollectPayload is the POST /collect body.
type CollectPayload struct {
	SiteKey   string                    `json:"site_key" validate:"required"`
	VisitorID string                    `json:"visitorId"`
	Fallback  *identity.FallbackSignals `json:"fallback,omitempty"`
	Events    []Event                   `json:"events" validate:"required|minLen:1"`
	Captcha   *CaptchaPayload           `json:"captcha,omitempty"`
}

func (p *CollectPayload) Validate() error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if err := validateVisitor(p.VisitorID, p.Fallback); err != nil {
		return err
	}
	for i := range p.Events {
		if p.Events[i].Type == "" {
			return fmt.Errorf("events[%d]: type is required", i)
		}
	}
	return validateCaptcha(p.Captcha)
}

// StatusQuery is the GET /consent/status query string.
type StatusQuery struct {
	SiteKey   string `json:"site_key" validate:"required"`
	VisitorID string `json:"visitorId"`
}

func (q *StatusQuery) Validate() error {
	return validateStruct(q)
}

func validateStruct(payload any) error {
	v := validate.Struct(payload)
	if !v.Validate() {
		return errors.New(v.Errors.One())
	}
	return nil
}

func validateVisitor(visitorID string, fallback *identity.FallbackSignals) error {
	if visitorID == "" {
		if fallback == nil {
			return errors.New("visitorId or fallback signals required")
		}
		return nil
	}
	if len(visitorID) < 6 {
		return errors.New("visitorId must be at least 6 characters")
	}
	return nil
}

func validateCaptcha(c *CaptchaPayload) error {
	if c == nil {
		return nil
	}
	return validateStruct(c)
}
