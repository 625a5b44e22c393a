package judge

import (
	"fmt"
	"sort"
	"strings"
)

// Language is a supported submission language and its executor identifier.
type Language struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	ExecutorID int    `json:"-"`
}

// Registry maps normalised language names to executor identifiers.
type Registry struct {
	languages map[string]Language
	aliases   map[string]string
}

var defaultLanguages = []Language{
	{Key: "javascript", Name: "JavaScript (Node.js)", ExecutorID: 63},
	{Key: "typescript", Name: "TypeScript", ExecutorID: 74},
	{Key: "python", Name: "Python 3", ExecutorID: 71},
	{Key: "java", Name: "Java", ExecutorID: 62},
	{Key: "cpp", Name: "C++", ExecutorID: 54},
	{Key: "c", Name: "C", ExecutorID: 50},
	{Key: "go", Name: "Go", ExecutorID: 60},
	{Key: "csharp", Name: "C#", ExecutorID: 51},
	{Key: "rust", Name: "Rust", ExecutorID: 73},
	{Key: "kotlin", Name: "Kotlin", ExecutorID: 78},
	{Key: "ruby", Name: "Ruby", ExecutorID: 72},
}

var defaultAliases = map[string]string{
	"js":      "javascript",
	"node":    "javascript",
	"nodejs":  "javascript",
	"ts":      "typescript",
	"py":      "python",
	"python3": "python",
	"c++":     "cpp",
	"cpp17":   "cpp",
	"cxx":     "cpp",
	"golang":  "go",
	"c#":      "csharp",
	"cs":      "csharp",
	"rs":      "rust",
	"kt":      "kotlin",
	"rb":      "ruby",
}

// NewRegistry builds a registry with the default Judge0 CE language table.
func NewRegistry() *Registry {
	return NewRegistryWith(defaultLanguages, defaultAliases)
}

// NewRegistryWith builds a registry from an explicit table.
func NewRegistryWith(languages []Language, aliases map[string]string) *Registry {
	r := &Registry{
		languages: make(map[string]Language, len(languages)),
		aliases:   make(map[string]string, len(aliases)),
	}
	for _, lang := range languages {
		key := normalizeLanguage(lang.Key)
		lang.Key = key
		r.languages[key] = lang
	}
	for alias, key := range aliases {
		r.aliases[normalizeLanguage(alias)] = normalizeLanguage(key)
	}
	return r
}

// Normalize returns the canonical key for the language, or an empty string when unknown.
func (r *Registry) Normalize(language string) string {
	key := normalizeLanguage(language)
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	if _, ok := r.languages[key]; !ok {
		return ""
	}
	return key
}

// Resolve looks up the language after case folding and alias expansion.
func (r *Registry) Resolve(language string) (Language, error) {
	key := r.Normalize(language)
	if key == "" {
		return Language{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, strings.TrimSpace(language))
	}
	return r.languages[key], nil
}

// Languages lists the supported languages ordered by key.
func (r *Registry) Languages() []Language {
	out := make([]Language, 0, len(r.languages))
	for _, lang := range r.languages {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Keys lists the canonical language keys in sorted order.
func (r *Registry) Keys() []string {
	languages := r.Languages()
	keys := make([]string, 0, len(languages))
	for _, lang := range languages {
		keys = append(keys, lang.Key)
	}
	return keys
}

func normalizeLanguage(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}
