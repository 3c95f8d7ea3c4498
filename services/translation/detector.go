package translation

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/language"
)

// languageRule is one entry in the ordered detection table. Scan order is
// the declared order; the first matching rule wins.
type languageRule struct {
	code     string
	keywords []string
}

// Keyword lists per language: the English name, the native name, and a
// common ASCII transliteration. This is a cheap heuristic, not a classifier;
// titles that match nothing default to English and simply skip translation.
var languageRules = []languageRule{
	{"ar", []string{"arabic", "عربي", "عرب"}},
	{"fr", []string{"french", "français", "francais"}},
	{"es", []string{"spanish", "español", "espanol"}},
	{"de", []string{"german", "deutsch"}},
	{"it", []string{"italian", "italiano"}},
	{"tr", []string{"turkish", "türkçe", "turkce"}},
}

// supportedLanguages are the codes the translation service handles. A
// provider language field outside this set is ignored.
var supportedLanguages = map[string]bool{
	"ar": true, "fr": true, "es": true, "de": true, "it": true, "tr": true,
	"en": true, "pt": true, "ru": true, "ja": true, "ko": true, "zh": true,
}

// Detector classifies a title into a language code using the provider's
// language field when present and the keyword table otherwise.
type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the language code for a title. Priority: a recognized
// metadata language field, then the ordered keyword scan, then "en".
func (d *Detector) Detect(title, languageField string) string {
	if code := normalizeLanguageField(languageField); code != "" {
		return code
	}

	lower := strings.ToLower(title)
	folded := unidecode.Unidecode(lower)
	for _, rule := range languageRules {
		if rule.code == "ar" && containsArabicScript(title) {
			return "ar"
		}
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) || strings.Contains(folded, kw) {
				return rule.code
			}
		}
	}
	return "en"
}

// normalizeLanguageField canonicalizes a provider language value ("ar",
// "pt-BR", "fra") to a supported 2-letter code, or "" when unrecognized.
func normalizeLanguageField(field string) string {
	field = strings.TrimSpace(field)
	if field == "" {
		return ""
	}
	tag, err := language.Parse(field)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	code := base.String()
	if supportedLanguages[code] {
		return code
	}
	return ""
}

// containsArabicScript reports whether any rune falls in the Arabic Unicode
// blocks, including presentation forms.
func containsArabicScript(s string) bool {
	for _, r := range s {
		switch {
		case r >= 0x0600 && r <= 0x06FF,
			r >= 0x0750 && r <= 0x077F,
			r >= 0x08A0 && r <= 0x08FF,
			r >= 0xFB50 && r <= 0xFDFF,
			r >= 0xFE70 && r <= 0xFEFF:
			return true
		}
	}
	return false
}
