package controllers

import (
	"cgd/internal/identity"
	"cgd/internal/models"
	"cgd/internal/providers"
	"cgd/internal/services"
	"errors"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger  providers.Logger
	service services.ConsentServiceInterface
}

func NewApiController(logger providers.Logger, service services.ConsentServiceInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
	}
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	gson, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

func requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		Origin:    r.Header.Get("Origin"),
		Referer:   r.Header.Get("Referer"),
		UserAgent: r.Header.Get("User-Agent"),
		RemoteIP:  identity.ClientIP(r),
	}
}

// mapServiceError translates pipeline errors to the wire taxonomy.
// captchaRequiredStatus differs per endpoint: 400 on consent writes,
// 403 on collect.
func (ac *ApiController) mapServiceError(w http.ResponseWriter, r *http.Request, err error, captchaRequiredStatus int, fallbackCode string) {
	var rateErr *services.RateLimitedError

	switch {
	case errors.Is(err, services.ErrSiteNotFound):
		writeError(w, http.StatusNotFound, "SITE_NOT_FOUND", "No site for the supplied key")
	case errors.Is(err, services.ErrOriginNotAllowed):
		writeError(w, http.StatusForbidden, "ORIGIN_NOT_ALLOWED", "Origin not allowed for this site")
	case errors.Is(err, services.ErrCaptchaRequired):
		writeError(w, captchaRequiredStatus, "CAPTCHA_REQUIRED", "Captcha token required for new devices")
	case errors.Is(err, services.ErrCaptchaInvalid):
		writeError(w, http.StatusBadRequest, "CAPTCHA_INVALID", "Captcha validation failed")
	case errors.As(err, &rateErr):
		w.Header().Set("Retry-After", strconv.Itoa(int(rateErr.RetryAfter.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
	default:
		ac.logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s failed: %s", r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, fallbackCode, "Internal error")
	}
}

func (ac *ApiController) Status(w http.ResponseWriter, r *http.Request) {
	query := &models.StatusQuery{
		SiteKey:   r.URL.Query().Get("site_key"),
		VisitorID: r.URL.Query().Get("visitorId"),
	}
	if err := query.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := ac.service.Status(r.Context(), query, requestMeta(r))
	if err != nil {
		ac.mapServiceError(w, r, err, http.StatusBadRequest, "STATUS_ERROR")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (ac *ApiController) RecordConsent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload models.ConsentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON body")
		return
	}
	if err := payload.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	receipt, err := ac.service.RecordConsent(r.Context(), &payload, requestMeta(r))
	if err != nil {
		ac.mapServiceError(w, r, err, http.StatusBadRequest, "CONSENT_ERROR")
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (ac *ApiController) Collect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload models.CollectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON body")
		return
	}
	if err := payload.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	accepted, err := ac.service.Collect(r.Context(), &payload, requestMeta(r))
	if err != nil {
		ac.mapServiceError(w, r, err, http.StatusForbidden, "COLLECT_ERROR")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": accepted})
}
