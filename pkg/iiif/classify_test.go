package iiif

import (
	"reflect"
	"testing"
)

func TestClassify(t *testing.T) {
	languagePattern := `^(text )?language`
	datePattern := "date"
	authorPattern := "^(author|creator)"

	tests := []struct {
		name     string
		metadata any
		pattern  string
		expected []string
	}{
		{
			name: "language label matches anchored pattern",
			metadata: []any{
				map[string]any{"label": "Language", "value": "Arabic"},
			},
			pattern:  languagePattern,
			expected: []string{"Arabic"},
		},
		{
			name: "text language synonym matches anchored pattern",
			metadata: []any{
				map[string]any{"label": "Text Language", "value": "Arabic"},
			},
			pattern:  languagePattern,
			expected: []string{"Arabic"},
		},
		{
			name: "descriptive label containing word does not match anchored pattern",
			metadata: []any{
				map[string]any{"label": "Note on language", "value": "Mixed"},
			},
			pattern:  languagePattern,
			expected: []string{NA},
		},
		{
			name: "loose date pattern matches substring",
			metadata: []any{
				map[string]any{"label": "Production Date", "value": "14th century"},
			},
			pattern:  datePattern,
			expected: []string{"14th century"},
		},
		{
			name: "all matching entries concatenated in order",
			metadata: []any{
				map[string]any{"label": "Author", "value": "Ibn Sina"},
				map[string]any{"label": "Creator", "value": "Unknown scribe"},
			},
			pattern:  authorPattern,
			expected: []string{"Ibn Sina", "Unknown scribe"},
		},
		{
			name: "entries missing fields are skipped",
			metadata: []any{
				map[string]any{"label": "Date"},
				map[string]any{"value": "1500"},
				map[string]any{"label": "Date", "value": "1644"},
			},
			pattern:  datePattern,
			expected: []string{"1644"},
		},
		{
			name: "label matched case-insensitively",
			metadata: []any{
				map[string]any{"label": "LANGUAGE(S)", "value": "Persian"},
			},
			pattern:  languagePattern,
			expected: []string{"Persian"},
		},
		{
			name:     "no matching entries",
			metadata: []any{map[string]any{"label": "Extent", "value": "120 ff."}},
			pattern:  languagePattern,
			expected: []string{NA},
		},
		{
			name:     "malformed metadata",
			metadata: "not a list",
			pattern:  datePattern,
			expected: []string{NA},
		},
		{
			name:     "nil metadata",
			metadata: nil,
			pattern:  datePattern,
			expected: []string{NA},
		},
		{
			name: "nested value flattened",
			metadata: []any{
				map[string]any{
					"label": "Language",
					"value": []any{"Arabic", "Judaeo-Arabic"},
				},
			},
			pattern:  languagePattern,
			expected: []string{"Arabic", "Judaeo-Arabic"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, err := CompilePattern(tt.pattern)
			if err != nil {
				t.Fatalf("compiling pattern %q: %v", tt.pattern, err)
			}
			got := Classify(tt.metadata, re)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Classify() = %#v, want %#v", got, tt.expected)
			}
		})
	}
}
