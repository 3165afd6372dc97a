package session

import (
	"strconv"
	"strings"
)

// Defaults applied when a client omits or mangles a session parameter.
const (
	DefaultLanguage   = "fr-FR"
	DefaultSampleRate = 16000
	DefaultEncoding   = "pcm"
)

// Config is the validated configuration for one transcription session.
// It is always fully populated: malformed or missing input is corrected
// to a default and never surfaced as an error.
type Config struct {
	LanguageCode string
	SampleRateHz int
	Encoding     string
}

// Normalize turns raw, untrusted query parameters into a session Config.
func Normalize(lang, sampleRate, encoding string) Config {
	return Config{
		LanguageCode: NormalizeLanguage(lang),
		SampleRateHz: parseSampleRate(sampleRate),
		Encoding:     normalizeEncoding(encoding),
	}
}

// NormalizeLanguage expands shorthand tags like "fr" or "en_US" into the
// supported language codes. Unrecognized input falls back to fr-FR.
func NormalizeLanguage(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "fr", "fr-fr", "fr_fr":
		return "fr-FR"
	case "en", "en-us", "en_us":
		return "en-US"
	default:
		return DefaultLanguage
	}
}

func parseSampleRate(raw string) int {
	rate, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || rate <= 0 {
		return DefaultSampleRate
	}
	return rate
}

func normalizeEncoding(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pcm", "ogg-opus":
		return strings.ToLower(strings.TrimSpace(raw))
	default:
		return DefaultEncoding
	}
}
