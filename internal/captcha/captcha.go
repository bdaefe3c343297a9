// Package captcha decides when human verification is required and checks
// solved tokens against the provider's upstream verify endpoint.
package captcha

import (
	"cgd/internal/models"
	"cgd/internal/providers"
	"cgd/internal/structures"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
)

// verifyEndpoints maps each supported provider to its siteverify URL. All
// three speak the same form-encoded request shape; only token retrieval
// quirks differ client-side.
var verifyEndpoints = map[string]string{
	"recaptcha": "https://www.google.com/recaptcha/api/siteverify",
	"hcaptcha":  "https://hcaptcha.com/siteverify",
	"turnstile": "https://challenges.cloudflare.com/turnstile/v0/siteverify",
}

func KnownProvider(provider string) bool {
	_, ok := verifyEndpoints[provider]
	return ok
}

// ShouldEnforce requires a challenge only at first contact: a site without
// a configured provider never enforces, a previously seen device is never
// challenged again.
func ShouldEnforce(site *models.Site, deviceSeen bool) bool {
	if !site.HasCaptcha() {
		return false
	}
	return !deviceSeen
}

type VerifierInterface interface {
	Verify(ctx context.Context, provider, token, remoteIP, secret string) (bool, error)
}

type Verifier struct {
	client      *http.Client
	endpoints   map[string]string
	fallback    map[string]string
	maxAttempts int
	timeout     time.Duration
	logger      providers.Logger
}

func NewVerifier(conf *structures.Config, logger providers.Logger) VerifierInterface {
	timeout := conf.Captcha.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	attempts := conf.Captcha.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &Verifier{
		client:      &http.Client{},
		endpoints:   verifyEndpoints,
		fallback:    conf.Captcha.Secrets,
		maxAttempts: attempts,
		timeout:     timeout,
		logger:      logger,
	}
}

var errRejected = errors.New("captcha token rejected")

// Verify posts the token upstream. A missing secret fails closed with no
// network call. An explicit upstream rejection returns (false, nil);
// transport failures are retried with exponential backoff and surface as
// an error so callers can tell "rejected" from "could not verify".
func (v *Verifier) Verify(ctx context.Context, provider, token, remoteIP, secret string) (bool, error) {
	endpoint, ok := v.endpoints[provider]
	if !ok {
		return false, fmt.Errorf("unknown captcha provider %q", provider)
	}

	resolved := secret
	if resolved == "" {
		resolved = v.fallback[provider]
	}
	if resolved == "" {
		v.logger.Warnf(providers.TypeApp, "No captcha secret for provider %s, failing closed", provider)
		return false, nil
	}

	form := url.Values{
		"secret":   {resolved},
		"response": {token},
		"remoteip": {remoteIP},
	}.Encode()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond

	valid, err := backoff.Retry(ctx, func() (bool, error) {
		return v.attempt(ctx, endpoint, form)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(v.maxAttempts)))

	if errors.Is(err, errRejected) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("captcha verification against %s failed: %w", provider, err)
	}
	return valid, nil
}

func (v *Verifier) attempt(ctx context.Context, endpoint, form string) (bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, strings.NewReader(form))
	if err != nil {
		return false, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("captcha upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}

	var payload struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return false, err
	}
	if !payload.Success {
		return false, backoff.Permanent(errRejected)
	}
	return true, nil
}
