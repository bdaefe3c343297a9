package models

import (
	"testing"

	"cgd/internal/identity"

	"github.com/stretchr/testify/assert"
)

func validConsentPayload() *ConsentPayload {
	return &ConsentPayload{
		SiteKey:       "site-abc",
		PolicyVersion: "2025-01",
		Choices:       Choices{"necessary": true, "ads": true},
		VisitorID:     "visitor-123456",
	}
}

func TestConsentPayloadValidate(t *testing.T) {
	assert.NoError(t, validConsentPayload().Validate())
}

func TestConsentPayloadMissingSiteKey(t *testing.T) {
	payload := validConsentPayload()
	payload.SiteKey = ""

	assert.Error(t, payload.Validate())
}

func TestConsentPayloadMissingPolicyVersion(t *testing.T) {
	payload := validConsentPayload()
	payload.PolicyVersion = ""

	assert.Error(t, payload.Validate())
}

func TestConsentPayloadShortVisitorID(t *testing.T) {
	payload := validConsentPayload()
	payload.VisitorID = "abc"

	assert.Error(t, payload.Validate())
}

func TestConsentPayloadFallbackSignals(t *testing.T) {
	payload := validConsentPayload()
	payload.VisitorID = ""

	assert.Error(t, payload.Validate())

	payload.Fallback = &identity.FallbackSignals{UserAgent: "Mozilla/5.0", Language: "en-US"}
	assert.NoError(t, payload.Validate())
}

func TestConsentPayloadEmptyChoices(t *testing.T) {
	payload := validConsentPayload()
	payload.Choices = nil

	assert.EqualError(t, payload.Validate(), "choices is required")
}

func TestConsentPayloadNecessaryRefused(t *testing.T) {
	payload := validConsentPayload()
	payload.Choices = Choices{"necessary": false, "ads": true}

	assert.ErrorIs(t, payload.Validate(), ErrNecessaryRefused)
}

func TestConsentPayloadCaptcha(t *testing.T) {
	payload := validConsentPayload()
	payload.Captcha = &CaptchaPayload{Provider: "turnstile", Token: "token-xyz"}
	assert.NoError(t, payload.Validate())

	payload.Captcha = &CaptchaPayload{Provider: "unknown", Token: "token-xyz"}
	assert.Error(t, payload.Validate())

	payload.Captcha = &CaptchaPayload{Provider: "recaptcha", Token: "x"}
	assert.Error(t, payload.Validate())
}

func validCollectPayload() *CollectPayload {
	return &CollectPayload{
		SiteKey:   "site-abc",
		VisitorID: "visitor-123456",
		Events:    []Event{{Type: "page_view", Purpose: "other"}},
	}
}

func TestCollectPayloadValidate(t *testing.T) {
	assert.NoError(t, validCollectPayload().Validate())
}

func TestCollectPayloadFallbackSignals(t *testing.T) {
	payload := validCollectPayload()
	payload.VisitorID = ""

	assert.Error(t, payload.Validate())

	payload.Fallback = &identity.FallbackSignals{UserAgent: "Mozilla/5.0"}
	assert.NoError(t, payload.Validate())
}

func TestCollectPayloadNoEvents(t *testing.T) {
	payload := validCollectPayload()
	payload.Events = nil

	assert.Error(t, payload.Validate())
}

func TestCollectPayloadEventWithoutType(t *testing.T) {
	payload := validCollectPayload()
	payload.Events = append(payload.Events, Event{Purpose: "ads"})

	assert.EqualError(t, payload.Validate(), "events[1]: type is required")
}

func TestStatusQueryValidate(t *testing.T) {
	assert.NoError(t, (&StatusQuery{SiteKey: "site-abc"}).Validate())
	assert.NoError(t, (&StatusQuery{SiteKey: "site-abc", VisitorID: "visitor-123456"}).Validate())
	assert.Error(t, (&StatusQuery{}).Validate())
}
