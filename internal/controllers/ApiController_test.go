package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cgd/internal/models"
	"cgd/internal/services"
	"cgd/internal/testutil"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockService implements services.ConsentServiceInterface with canned
// results per method.
type mockService struct {
	status      *services.StatusResult
	receipt     *services.ConsentReceipt
	accepted    int
	err         error
	lastConsent *models.ConsentPayload
	lastCollect *models.CollectPayload
	lastQuery   *models.StatusQuery
	lastMeta    services.RequestMeta
}

func (m *mockService) Status(_ context.Context, query *models.StatusQuery, meta services.RequestMeta) (*services.StatusResult, error) {
	m.lastQuery = query
	m.lastMeta = meta
	return m.status, m.err
}

func (m *mockService) RecordConsent(_ context.Context, payload *models.ConsentPayload, meta services.RequestMeta) (*services.ConsentReceipt, error) {
	m.lastConsent = payload
	m.lastMeta = meta
	return m.receipt, m.err
}

func (m *mockService) Collect(_ context.Context, payload *models.CollectPayload, meta services.RequestMeta) (int, error) {
	m.lastCollect = payload
	m.lastMeta = meta
	return m.accepted, m.err
}

func newController(svc *mockService) *ApiController {
	return NewApiController(&testutil.MockLogger{}, svc)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code, body.Error.Message
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: &services.StatusResult{
		NeedConsent:   true,
		PolicyVersion: "2025-01",
	}}
	controller := newController(svc)

	req := httptest.NewRequest("GET", "/consent/status?site_key=site-abc&visitorId=visitor-123456", nil)
	req.Header.Set("Origin", "https://shop.example")
	rec := httptest.NewRecorder()
	controller.Status(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result services.StatusResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.NeedConsent)
	assert.Equal(t, "2025-01", result.PolicyVersion)

	assert.Equal(t, "site-abc", svc.lastQuery.SiteKey)
	assert.Equal(t, "visitor-123456", svc.lastQuery.VisitorID)
	assert.Equal(t, "https://shop.example", svc.lastMeta.Origin)
}

func TestStatusHandlerMissingSiteKey(t *testing.T) {
	controller := newController(&mockService{})

	rec := httptest.NewRecorder()
	controller.Status(rec, httptest.NewRequest("GET", "/consent/status", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, "BAD_REQUEST", code)
}

func TestStatusHandlerUnknownSite(t *testing.T) {
	controller := newController(&mockService{err: services.ErrSiteNotFound})

	rec := httptest.NewRecorder()
	controller.Status(rec, httptest.NewRequest("GET", "/consent/status?site_key=ghost", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, "SITE_NOT_FOUND", code)
}

func consentBody(t *testing.T) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(models.ConsentPayload{
		SiteKey:       "site-abc",
		PolicyVersion: "2025-01",
		Choices:       models.Choices{"necessary": true, "ads": true},
		VisitorID:     "visitor-123456",
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestRecordConsentHandler(t *testing.T) {
	svc := &mockService{receipt: &services.ConsentReceipt{DeviceID: "dev-1", StoredAt: time.Now()}}
	controller := newController(svc)

	req := httptest.NewRequest("POST", "/consent", consentBody(t))
	req.Header.Set("User-Agent", "UA/1.0")
	rec := httptest.NewRecorder()
	controller.RecordConsent(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var receipt services.ConsentReceipt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &receipt))
	assert.Equal(t, "dev-1", receipt.DeviceID)
	assert.Equal(t, "UA/1.0", svc.lastMeta.UserAgent)
}

func TestRecordConsentHandlerMalformedBody(t *testing.T) {
	controller := newController(&mockService{})

	rec := httptest.NewRecorder()
	controller.RecordConsent(rec, httptest.NewRequest("POST", "/consent", bytes.NewReader([]byte("{not json"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	code, message := decodeError(t, rec)
	assert.Equal(t, "BAD_REQUEST", code)
	assert.Equal(t, "Malformed JSON body", message)
}

func TestRecordConsentHandlerNecessaryRefused(t *testing.T) {
	controller := newController(&mockService{})
	body, err := json.Marshal(models.ConsentPayload{
		SiteKey:       "site-abc",
		PolicyVersion: "2025-01",
		Choices:       models.Choices{"necessary": false},
		VisitorID:     "visitor-123456",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	controller.RecordConsent(rec, httptest.NewRequest("POST", "/consent", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordConsentHandlerCaptchaRequiredIs400(t *testing.T) {
	controller := newController(&mockService{err: services.ErrCaptchaRequired})

	rec := httptest.NewRecorder()
	controller.RecordConsent(rec, httptest.NewRequest("POST", "/consent", consentBody(t)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, "CAPTCHA_REQUIRED", code)
}

func TestRecordConsentHandlerCaptchaInvalid(t *testing.T) {
	controller := newController(&mockService{err: services.ErrCaptchaInvalid})

	rec := httptest.NewRecorder()
	controller.RecordConsent(rec, httptest.NewRequest("POST", "/consent", consentBody(t)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, "CAPTCHA_INVALID", code)
}

func TestRecordConsentHandlerOriginDenied(t *testing.T) {
	controller := newController(&mockService{err: services.ErrOriginNotAllowed})

	rec := httptest.NewRecorder()
	controller.RecordConsent(rec, httptest.NewRequest("POST", "/consent", consentBody(t)))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, "ORIGIN_NOT_ALLOWED", code)
}

func TestRecordConsentHandlerRateLimited(t *testing.T) {
	controller := newController(&mockService{err: &services.RateLimitedError{RetryAfter: 42 * time.Second}})

	rec := httptest.NewRecorder()
	controller.RecordConsent(rec, httptest.NewRequest("POST", "/consent", consentBody(t)))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "43", rec.Header().Get("Retry-After"))
	code, _ := decodeError(t, rec)
	assert.Equal(t, "RATE_LIMITED", code)
}

func TestRecordConsentHandlerInternalError(t *testing.T) {
	logger := &testutil.MockLogger{}
	controller := NewApiController(logger, &mockService{err: errors.New("db down")})

	rec := httptest.NewRecorder()
	controller.RecordConsent(rec, httptest.NewRequest("POST", "/consent", consentBody(t)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	code, message := decodeError(t, rec)
	assert.Equal(t, "CONSENT_ERROR", code)
	// internals never leak to clients
	assert.Equal(t, "Internal error", message)
	assert.NotEmpty(t, logger.Logs)
}

func collectBody(t *testing.T) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(models.CollectPayload{
		SiteKey:   "site-abc",
		VisitorID: "visitor-123456",
		Events:    []models.Event{{Type: "page_view", Purpose: "other"}},
	})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestCollectHandler(t *testing.T) {
	svc := &mockService{accepted: 1}
	controller := newController(svc)

	rec := httptest.NewRecorder()
	controller.Collect(rec, httptest.NewRequest("POST", "/collect", collectBody(t)))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"accepted":1}`, rec.Body.String())
	require.NotNil(t, svc.lastCollect)
	assert.Len(t, svc.lastCollect.Events, 1)
}

func TestCollectHandlerZeroAccepted(t *testing.T) {
	controller := newController(&mockService{accepted: 0})

	rec := httptest.NewRecorder()
	controller.Collect(rec, httptest.NewRequest("POST", "/collect", collectBody(t)))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"accepted":0}`, rec.Body.String())
}

func TestCollectHandlerCaptchaRequiredIs403(t *testing.T) {
	controller := newController(&mockService{err: services.ErrCaptchaRequired})

	rec := httptest.NewRecorder()
	controller.Collect(rec, httptest.NewRequest("POST", "/collect", collectBody(t)))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	code, _ := decodeError(t, rec)
	assert.Equal(t, "CAPTCHA_REQUIRED", code)
}

func TestCollectHandlerEmptyEvents(t *testing.T) {
	controller := newController(&mockService{})
	body, err := json.Marshal(models.CollectPayload{
		SiteKey:   "site-abc",
		VisitorID: "visitor-123456",
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	controller.Collect(rec, httptest.NewRequest("POST", "/collect", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
