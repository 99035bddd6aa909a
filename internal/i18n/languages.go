package i18n

import "strings"

var languageNames = map[string]string{
	"en": "English",
	"ru": "Russian",
}

// IsSupported reports whether code names a language with a catalog.
func IsSupported(code string) bool {
	code = strings.ToLower(code)
	for _, lang := range GetLanguagesList() {
		if lang == code {
			return true
		}
	}
	return false
}

func GetLanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}
