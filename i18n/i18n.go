// Package i18n holds the translated text tables of the site and API.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguage is used when a key or a language is missing.
const DefaultLanguage = "en"

//go:embed locales/*.json
var localesFS embed.FS

var (
	tables  map[string]map[string]string
	matcher language.Matcher
	ordered []string
)

func init() {
	entries, err := localesFS.ReadDir("locales")
	if err != nil {
		panic(fmt.Sprintf("i18n: read embedded locales: %v", err))
	}
	tables = make(map[string]map[string]string, len(entries))
	for _, e := range entries {
		data, err := localesFS.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			panic(fmt.Sprintf("i18n: read %s: %v", e.Name(), err))
		}
		table := map[string]string{}
		if err := json.Unmarshal(data, &table); err != nil {
			panic(fmt.Sprintf("i18n: parse %s: %v", e.Name(), err))
		}
		tables[strings.TrimSuffix(e.Name(), ".json")] = table
	}

	// the matcher falls back to its first tag
	ordered = []string{DefaultLanguage}
	for lang := range tables {
		if lang != DefaultLanguage {
			ordered = append(ordered, lang)
		}
	}
	sort.Strings(ordered[1:])
	tags := make([]language.Tag, len(ordered))
	for i, l := range ordered {
		tags[i] = language.Make(l)
	}
	matcher = language.NewMatcher(tags)
}

// Localizer translates keys for one language.
type Localizer struct {
	language string
	messages map[string]string
}

// New returns a Localizer for lang. Unsupported languages get English.
func New(lang string) *Localizer {
	lang = strings.ToLower(strings.TrimSpace(lang))
	table, ok := tables[lang]
	if !ok {
		lang = DefaultLanguage
		table = tables[DefaultLanguage]
	}
	return &Localizer{language: lang, messages: table}
}

// Language returns the language the Localizer serves.
func (l *Localizer) Language() string {
	return l.language
}

// T translates key, formatting it with args when given. Missing keys fall
// back to English and then to the key itself.
func (l *Localizer) T(key string, args ...any) string {
	msg, ok := l.messages[key]
	if !ok {
		msg, ok = tables[DefaultLanguage][key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Languages returns the supported language codes, default first.
func Languages() []string {
	res := make([]string, len(ordered))
	copy(res, ordered)
	return res
}

// Supported reports whether lang has its own table.
func Supported(lang string) bool {
	_, ok := tables[lang]
	return ok
}

// Dictionary returns the full table for lang with English filling the gaps.
func Dictionary(lang string) (map[string]string, bool) {
	table, ok := tables[lang]
	if !ok {
		return nil, false
	}
	res := make(map[string]string, len(tables[DefaultLanguage]))
	for k, v := range tables[DefaultLanguage] {
		res[k] = v
	}
	for k, v := range table {
		res[k] = v
	}
	return res, true
}

// Match picks the best supported language for the given Accept-Language
// header values.
func Match(accept ...string) string {
	_, idx := language.MatchStrings(matcher, accept...)
	if idx < 0 || idx >= len(ordered) {
		return DefaultLanguage
	}
	return ordered[idx]
}
