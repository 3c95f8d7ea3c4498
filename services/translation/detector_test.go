package translation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFromTitleKeywords(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"english keyword arabic", "Arabic Drama Series", "ar"},
		{"native arabic keyword", "Series with عربي keyword", "ar"},
		{"short arabic keyword", "قناة عرب", "ar"},
		{"arabic script title", "فهد البطل", "ar"},
		{"french keyword", "French Comedy Night", "fr"},
		{"french native", "Cinéma Français HD", "fr"},
		{"french transliterated", "Films Francais", "fr"},
		{"spanish keyword", "Spanish Telenovela", "es"},
		{"spanish native", "Cine Español", "es"},
		{"german keyword", "German Crime Show", "de"},
		{"german native", "Deutsch TV", "de"},
		{"italian keyword", "Italian Classics", "it"},
		{"turkish keyword", "Turkish Dizi", "tr"},
		{"turkish native", "Türkçe Dublaj", "tr"},
		{"no match defaults to english", "Test Movie", "en"},
		{"empty title", "", "en"},
		{"case insensitive", "ARABIC MOVIES", "ar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(tt.title, ""))
		})
	}
}

func TestDetectPrefersMetadataLanguageField(t *testing.T) {
	d := NewDetector()

	// A recognized provider field wins over title keywords.
	assert.Equal(t, "fr", d.Detect("Arabic Drama Series", "fr"))
	assert.Equal(t, "pt", d.Detect("Test Movie", "pt-BR"))
	assert.Equal(t, "ja", d.Detect("Test Movie", "ja"))
	assert.Equal(t, "en", d.Detect("Test Movie", "en"))

	// Unrecognized fields fall through to the keyword scan.
	assert.Equal(t, "ar", d.Detect("Arabic Drama Series", "not-a-language-!!"))
	assert.Equal(t, "en", d.Detect("Test Movie", "xx-klingon-!!"))

	// Supported set only: a valid but unsupported language is ignored.
	assert.Equal(t, "en", d.Detect("Test Movie", "fi"))
}

func TestDetectScanOrderIsDeterministic(t *testing.T) {
	d := NewDetector()

	// Title matching two rules resolves to the first declared rule.
	assert.Equal(t, "ar", d.Detect("Arabic French Mix", ""))
	assert.Equal(t, "fr", d.Detect("French German Mix", ""))
}

func TestContainsArabicScript(t *testing.T) {
	assert.True(t, containsArabicScript("مسلسل"))
	assert.True(t, containsArabicScript("mixed عربي text"))
	assert.False(t, containsArabicScript("plain ascii"))
	assert.False(t, containsArabicScript("日本語"))
}
