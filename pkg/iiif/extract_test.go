package iiif

import (
	"reflect"
	"testing"
)

func TestExtractValues(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected []string
	}{
		{
			name:     "plain string",
			input:    "Book of Hours",
			expected: []string{"Book of Hours"},
		},
		{
			name:     "nil input",
			input:    nil,
			expected: nil,
		},
		{
			name:     "array of strings",
			input:    []any{"First", "Second"},
			expected: []string{"First", "Second"},
		},
		{
			name:     "nested object values only",
			input:    map[string]any{"@value": "Psalter", "@language": "en"},
			expected: []string{"en", "Psalter"},
		},
		{
			name:     "integers stringified",
			input:    []any{"folio", float64(42)},
			expected: []string{"folio", "42"},
		},
		{
			name:     "non-integral and bool leaves dropped",
			input:    []any{true, 3.14, "kept"},
			expected: []string{"kept"},
		},
		{
			name:     "html stripped to visible text",
			input:    "<p>An <b>illuminated</b> manuscript</p>",
			expected: []string{"An illuminated manuscript"},
		},
		{
			name:     "script content removed",
			input:    "<script>alert('x')</script>Safe title",
			expected: []string{"Safe title"},
		},
		{
			name:     "whitespace collapsed and trimmed",
			input:    "  A   title\nacross lines\r ",
			expected: []string{"A title across lines"},
		},
		{
			name:     "separator punctuation stripped",
			input:    "; Fes, Morocco,",
			expected: []string{"Fes, Morocco"},
		},
		{
			name:     "empty after cleaning dropped",
			input:    []any{"  ;, ", "Paper"},
			expected: []string{"Paper"},
		},
		{
			name:     "modifier apostrophe folded",
			input:    "Qurʼan",
			expected: []string{"Qur'an"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractValues(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ExtractValues(%v) = %#v, want %#v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestJoinAndSplitValues(t *testing.T) {
	values := []string{"Arabic", "Persian"}
	stored := JoinValues(values, MultiValueSeparator)
	if stored != "Arabic | Persian" {
		t.Fatalf("unexpected stored form: %q", stored)
	}
	if got := SplitValues(stored); !reflect.DeepEqual(got, values) {
		t.Errorf("SplitValues(%q) = %#v, want %#v", stored, got, values)
	}
	if got := SplitValues(""); got != nil {
		t.Errorf("SplitValues of empty string should be nil, got %#v", got)
	}
}
