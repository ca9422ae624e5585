// Package localization renders user-facing notification text. Translations
// are flat JSON files named by language code (e.g. "en.json"); English is
// the fallback for missing keys.
package localization

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
)

//go:embed locales/*.json
var bundled embed.FS

const fallbackLang = "en"

// Localizer holds one key/value table per language.
type Localizer struct {
	translations map[string]map[string]string
	mu           sync.RWMutex
}

// NewLocalizer loads every JSON file in dir.
func NewLocalizer(dir string) (*Localizer, error) {
	return load(os.DirFS(dir))
}

// Bundled returns the translations compiled into the binary.
func Bundled() (*Localizer, error) {
	sub, err := fs.Sub(bundled, "locales")
	if err != nil {
		return nil, err
	}
	return load(sub)
}

func load(fsys fs.FS) (*Localizer, error) {
	l := &Localizer{translations: make(map[string]map[string]string)}

	files, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read localization directory: %w", err)
	}
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(".", file.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read localization file %s: %w", file.Name(), err)
		}
		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("failed to parse localization file %s: %w", file.Name(), err)
		}
		l.translations[strings.TrimSuffix(file.Name(), ".json")] = translations
	}
	return l, nil
}

// GetString returns the translation of key, falling back to English and
// then to the key itself.
func (l *Localizer) GetString(lang, key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if value, ok := l.translations[lang][key]; ok {
		return value
	}
	if lang != fallbackLang {
		if value, ok := l.translations[fallbackLang][key]; ok {
			return value
		}
	}
	return key
}

// Format looks up key and replaces {name} placeholders from args.
func (l *Localizer) Format(lang, key string, args map[string]string) string {
	text := l.GetString(lang, key)
	if len(args) == 0 {
		return text
	}
	pairs := make([]string, 0, len(args)*2)
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Languages lists the loaded language codes.
func (l *Localizer) Languages() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.translations))
	for lang := range l.translations {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}
