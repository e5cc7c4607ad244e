package utils

import (
	"fmt"
	"sort"
	"strings"
)

type Language struct {
	Name string
	Code string
}

// Languages lists the translated-language codes MangaDex accepts.
var Languages = []Language{
	{"Arabic", "ar"},
	{"Bengali", "bn"},
	{"Bulgarian", "bg"},
	{"Burmese", "my"},
	{"Catalan", "ca"},
	{"Chinese (Simplified)", "zh"},
	{"Chinese (Traditional)", "zh-hk"},
	{"Czech", "cs"},
	{"Danish", "da"},
	{"Dutch", "nl"},
	{"English", "en"},
	{"Filipino", "tl"},
	{"Finnish", "fi"},
	{"French", "fr"},
	{"German", "de"},
	{"Greek", "el"},
	{"Hebrew", "he"},
	{"Hindi", "hi"},
	{"Hungarian", "hu"},
	{"Indonesian", "id"},
	{"Italian", "it"},
	{"Japanese", "ja"},
	{"Japanese (Romanized)", "ja-ro"},
	{"Korean", "ko"},
	{"Korean (Romanized)", "ko-ro"},
	{"Lithuanian", "lt"},
	{"Malay", "ms"},
	{"Mongolian", "mn"},
	{"Norwegian", "no"},
	{"Persian", "fa"},
	{"Polish", "pl"},
	{"Portuguese", "pt"},
	{"Portuguese (Brazil)", "pt-br"},
	{"Romanian", "ro"},
	{"Russian", "ru"},
	{"Serbo-Croatian", "sh"},
	{"Spanish", "es"},
	{"Spanish (LATAM)", "es-la"},
	{"Swedish", "sv"},
	{"Thai", "th"},
	{"Turkish", "tr"},
	{"Ukrainian", "uk"},
	{"Vietnamese", "vi"},
}

// GetLanguage resolves a language code or name, case-insensitively.
func GetLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	for _, lang := range Languages {
		if strings.EqualFold(lang.Code, s) || strings.EqualFold(lang.Name, s) {
			return lang, nil
		}
	}
	return Language{}, fmt.Errorf("unknown language %q", s)
}

// LanguageCodes returns every known code, sorted.
func LanguageCodes() []string {
	codes := make([]string, len(Languages))
	for i, lang := range Languages {
		codes[i] = lang.Code
	}
	sort.Strings(codes)
	return codes
}
