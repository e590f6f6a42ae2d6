// Package i18n holds the user interface translations.
//
// Translations live in locales/<language>.yaml as flat key-value maps.
package i18n

import (
	"embed"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Language represents a supported language.
type Language string

const (
	// English is the English language.
	English Language = "en"
	// Chinese is Simplified Chinese.
	Chinese Language = "zh"
)

// DefaultLanguage is the fallback language.
const DefaultLanguage = English

//go:embed locales/*.yaml
var localeFS embed.FS

//nolint:gochecknoglobals // parsed once from the embedded files.
var (
	loadOnce     sync.Once
	translations map[Language]map[string]string
)

// load panics on malformed locale files since they are compiled into the binary.
func load() map[Language]map[string]string {
	loadOnce.Do(func() {
		translations = make(map[Language]map[string]string)
		for _, lang := range SupportedLanguages() {
			data, err := localeFS.ReadFile(fmt.Sprintf("locales/%s.yaml", lang))
			if err != nil {
				panic(fmt.Sprintf("read locale %s: %v", lang, err))
			}
			m := make(map[string]string)
			if err = yaml.Unmarshal(data, &m); err != nil {
				panic(fmt.Sprintf("parse locale %s: %v", lang, err))
			}
			translations[lang] = m
		}
	})
	return translations
}

// SupportedLanguages returns a list of all supported languages.
func SupportedLanguages() []Language {
	return []Language{English, Chinese}
}

// IsSupported checks if a language is supported.
func IsSupported(lang Language) bool {
	_, ok := load()[lang]
	return ok
}

// Match picks the first supported language from an Accept-Language header value. Region subtags are ignored.
func Match(acceptLanguage string) Language {
	for part := range strings.SplitSeq(acceptLanguage, ",") {
		tag, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		base, _, _ := strings.Cut(tag, "-")
		if lang := Language(strings.ToLower(base)); IsSupported(lang) {
			return lang
		}
	}
	return DefaultLanguage
}

// Translate returns the translation for the given key in the specified language.
// If the key is not found, it falls back to the default language.
// If still not found, it returns the key itself.
func Translate(lang Language, key string) string {
	all := load()
	if translation, ok := all[lang][key]; ok {
		return translation
	}
	if translation, ok := all[DefaultLanguage][key]; ok {
		return translation
	}
	return key
}

// Translator binds Translate to lang.
func Translator(lang Language) func(key string) string {
	return func(key string) string {
		return Translate(lang, key)
	}
}

// Keys returns the sorted translation keys defined for lang.
func Keys(lang Language) []string {
	return slices.Sorted(maps.Keys(load()[lang]))
}
