package judge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryResolveFoldsCaseAndAliases(t *testing.T) {
	registry := NewRegistry()

	cases := map[string]string{
		"javascript": "javascript",
		"JavaScript": "javascript",
		" nodejs ":   "javascript",
		"c++":        "cpp",
		"C++":        "cpp",
		"cpp":        "cpp",
		"Python3":    "python",
		"golang":     "go",
		"C#":         "csharp",
	}

	for input, want := range cases {
		lang, err := registry.Resolve(input)
		require.NoError(t, err, input)
		require.Equal(t, want, lang.Key, input)
	}

	js, err := registry.Resolve("JavaScript")
	require.NoError(t, err)
	require.Equal(t, 63, js.ExecutorID)

	cpp, err := registry.Resolve("C++")
	require.NoError(t, err)
	require.Equal(t, 54, cpp.ExecutorID)
}

func TestRegistryResolveUnknownLanguage(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Resolve("brainfuck")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnsupportedLanguage))

	_, err = registry.Resolve("")
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestRegistryLanguagesSorted(t *testing.T) {
	registry := NewRegistryWith([]Language{{Key: "Python", ExecutorID: 71}, {Key: "c", ExecutorID: 50}}, nil)

	langs := registry.Languages()
	require.Len(t, langs, 2)
	require.Equal(t, "c", langs[0].Key)
	require.Equal(t, "python", langs[1].Key)
	require.Equal(t, "python", registry.Normalize(" PYTHON "))
	require.Empty(t, registry.Normalize("py"))
}

func TestRegistryKeysCoverDefaults(t *testing.T) {
	keys := NewRegistry().Keys()
	require.Len(t, keys, 11)
	require.Equal(t, "c", keys[0])
	require.Contains(t, keys, "javascript")
	require.Contains(t, keys, "cpp")
}
