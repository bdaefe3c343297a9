package providers

import (
	"cgd/internal/structures"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func init() {
	validate.AddValidator("unixPath", func(val string) bool {
		if val == "" || strings.ContainsRune(val, 0) {
			return false
		}
		return filepath.IsAbs(val) || !strings.HasPrefix(val, "~")
	})
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return errors.New(v.Errors.One())
	}

	for i := range cv.conf.Sites {
		if err := validateSeed(&cv.conf.Sites[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateSeed(seed *structures.SiteSeed) error {
	if seed.PolicyVersion == "" {
		return fmt.Errorf("site seed %q: policyVersion is required", seed.Key)
	}
	switch seed.CaptchaProvider {
	case "", "recaptcha", "hcaptcha", "turnstile":
	default:
		return fmt.Errorf("site seed %q: unknown captcha provider %q", seed.Key, seed.CaptchaProvider)
	}
	if seed.CaptchaProvider != "" && seed.CaptchaSiteKey == "" {
		return fmt.Errorf("site seed %q: captchaSiteKey is required when a captcha provider is set", seed.Key)
	}
	return nil
}
