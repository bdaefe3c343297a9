package identity

import (
	"strconv"
	"strings"
)

// ScreenSignals describes the display half of a fallback fingerprint.
type ScreenSignals struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
	ColorDepth int     `json:"colorDepth"`
}

// FallbackSignals are best-effort browser traits used when no
// higher-fidelity fingerprinting provider is available client-side.
type FallbackSignals struct {
	UserAgent           string         `json:"userAgent,omitempty"`
	Language            string         `json:"language,omitempty"`
	Languages           []string       `json:"languages,omitempty"`
	Timezone            string         `json:"timezone,omitempty"`
	Platform            string         `json:"platform,omitempty"`
	HardwareConcurrency int            `json:"hardwareConcurrency,omitempty"`
	DeviceMemory        int            `json:"deviceMemory,omitempty"`
	Screen              *ScreenSignals `json:"screen,omitempty"`
}

// FallbackVisitorID hashes the joined signals; field order is fixed so the
// id stays stable across calls with the same traits.
func FallbackVisitorID(in FallbackSignals) string {
	parts := []string{
		in.UserAgent,
		in.Language,
		strings.Join(in.Languages, ","),
		in.Timezone,
		in.Platform,
		itoaOrEmpty(in.HardwareConcurrency),
		itoaOrEmpty(in.DeviceMemory),
	}

	if in.Screen != nil {
		parts = append(parts, strings.Join([]string{
			strconv.Itoa(in.Screen.Width),
			strconv.Itoa(in.Screen.Height),
			strconv.FormatFloat(in.Screen.PixelRatio, 'f', -1, 64),
			strconv.Itoa(in.Screen.ColorDepth),
		}, "x"))
	}

	return SHA256Hex(strings.Join(parts, "|"))
}

func itoaOrEmpty(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
