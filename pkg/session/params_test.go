package session

import "testing"

func TestNormalizeLanguage(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"FR", "fr-FR"},
		{"fr_FR", "fr-FR"},
		{"fr-fr", "fr-FR"},
		{" en ", "en-US"},
		{"en_US", "en-US"},
		{"EN-US", "en-US"},
		{"de", "fr-FR"},
		{"", "fr-FR"},
	}
	for _, c := range cases {
		if got := NormalizeLanguage(c.in); got != c.want {
			t.Fatalf("NormalizeLanguage(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeSampleRate(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"8000", 8000},
		{"44100", 44100},
		{"", 16000},
		{"abc", 16000},
		{"-1", 16000},
		{"0", 16000},
	}
	for _, c := range cases {
		if got := Normalize("fr", c.in, "pcm").SampleRateHz; got != c.want {
			t.Fatalf("sample_rate %q normalized to %d, want %d", c.in, got, c.want)
		}
	}
}

func TestNormalizeEncoding(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"pcm", "pcm"},
		{"PCM", "pcm"},
		{"ogg-opus", "ogg-opus"},
		{"OGG-OPUS", "ogg-opus"},
		{"mp3", "pcm"},
		{"", "pcm"},
	}
	for _, c := range cases {
		if got := Normalize("fr", "16000", c.in).Encoding; got != c.want {
			t.Fatalf("encoding %q normalized to %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeAlwaysPopulated(t *testing.T) {
	cfg := Normalize("", "", "")
	if cfg.LanguageCode != DefaultLanguage || cfg.SampleRateHz != DefaultSampleRate || cfg.Encoding != DefaultEncoding {
		t.Fatalf("empty input not fully defaulted: %+v", cfg)
	}
}
