package iiif

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/folia-dh/folia/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	cfg, err := config.GetDefaultConfig()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Repositories = []config.RepositoryRule{
		{Key: "cudl", Name: "Cambridge University Library"},
		{Key: "bodleian", Name: "Bodleian Libraries"},
	}
	return cfg
}

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(testConfig(t))
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}
	return n
}

func decodeManifest(t *testing.T, src string) map[string]any {
	t.Helper()
	var raw map[string]any
	if err := json.Unmarshal([]byte(src), &raw); err != nil {
		t.Fatalf("decoding manifest: %v", err)
	}
	return raw
}

func TestNormalizeFullManifest(t *testing.T) {
	n := newTestNormalizer(t)
	raw := decodeManifest(t, `{
		"@id": "https://cudl.lib.cam.ac.uk/iiif/MS-ADD-00269",
		"label": "Book of Hours",
		"description": "<p>An illuminated manuscript.</p>",
		"metadata": [
			{"label": "Date of Creation", "value": "c. 1430"},
			{"label": "Language(s)", "value": ["Latin", "French"]},
			{"label": "Material", "value": "Parchment"},
			{"label": "Author(s)", "value": "Unknown"}
		],
		"sequences": [{
			"canvases": [{
				"images": [{
					"resource": {
						"@id": "https://images.lib.cam.ac.uk/iiif/MS-ADD-00269-000-00001.jp2/full/full/0/default.jpg"
					}
				}]
			}]
		}]
	}`)

	doc, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if doc.ID != "https://cudl.lib.cam.ac.uk/iiif/MS-ADD-00269" {
		t.Errorf("unexpected id %q", doc.ID)
	}
	if !reflect.DeepEqual(doc.Label, []string{"Book of Hours"}) {
		t.Errorf("unexpected label %#v", doc.Label)
	}
	if !reflect.DeepEqual(doc.Description, []string{"An illuminated manuscript."}) {
		t.Errorf("unexpected description %#v", doc.Description)
	}
	if !reflect.DeepEqual(doc.Date, []string{"c. 1430"}) {
		t.Errorf("unexpected date %#v", doc.Date)
	}
	if !reflect.DeepEqual(doc.Language, []string{"Latin", "French"}) {
		t.Errorf("unexpected language %#v", doc.Language)
	}
	if !reflect.DeepEqual(doc.Material, []string{"Parchment"}) {
		t.Errorf("unexpected material %#v", doc.Material)
	}
	if !reflect.DeepEqual(doc.Author, []string{"Unknown"}) {
		t.Errorf("unexpected author %#v", doc.Author)
	}
	if doc.Repository != "Cambridge University Library" {
		t.Errorf("unexpected repository %q", doc.Repository)
	}
	want := "https://images.lib.cam.ac.uk/iiif/MS-ADD-00269-000-00001.jp2/full/!200,200/0/default.jpg"
	if doc.Thumbnail != want {
		t.Errorf("thumbnail = %q, want %q", doc.Thumbnail, want)
	}
}

func TestNormalizeMissingID(t *testing.T) {
	n := newTestNormalizer(t)
	for _, raw := range []map[string]any{
		{"label": "No id at all"},
		{"@id": "", "label": "Empty id"},
	} {
		if _, err := n.Normalize(raw); !errors.Is(err, ErrMissingID) {
			t.Errorf("Normalize(%v) error = %v, want ErrMissingID", raw, err)
		}
	}
}

func TestNormalizeDuplicateID(t *testing.T) {
	n := newTestNormalizer(t)
	raw := map[string]any{"@id": "https://example.org/iiif/m1", "label": "First"}
	if _, err := n.Normalize(raw); err != nil {
		t.Fatalf("first Normalize: %v", err)
	}
	if _, err := n.Normalize(raw); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("second Normalize error = %v, want ErrDuplicateID", err)
	}
}

func TestNormalizeAbsentFields(t *testing.T) {
	n := newTestNormalizer(t)
	doc, err := n.Normalize(map[string]any{"@id": "https://example.org/iiif/bare"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	na := []string{NA}
	for field, got := range map[string][]string{
		"label":       doc.Label,
		"description": doc.Description,
		"date":        doc.Date,
		"language":    doc.Language,
		"material":    doc.Material,
		"author":      doc.Author,
	} {
		if !reflect.DeepEqual(got, na) {
			t.Errorf("%s = %#v, want %#v", field, got, na)
		}
	}
	if doc.Repository != NA {
		t.Errorf("repository = %q, want %q", doc.Repository, NA)
	}
	if doc.Thumbnail != "" {
		t.Errorf("thumbnail = %q, want empty", doc.Thumbnail)
	}
}

func TestRepositoryFirstMatchWins(t *testing.T) {
	cfg := testConfig(t)
	cfg.Repositories = []config.RepositoryRule{
		{Key: "lib", Name: "Generic Library"},
		{Key: "cudl.lib", Name: "Cambridge University Library"},
	}
	n, err := NewNormalizer(cfg)
	if err != nil {
		t.Fatalf("NewNormalizer: %v", err)
	}

	doc, err := n.Normalize(map[string]any{"@id": "https://cudl.lib.cam.ac.uk/iiif/m1"})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if doc.Repository != "Generic Library" {
		t.Errorf("repository = %q, want first matching rule", doc.Repository)
	}
}

func TestThumbnailPrefersService(t *testing.T) {
	n := newTestNormalizer(t)
	raw := decodeManifest(t, `{
		"@id": "https://cudl.lib.cam.ac.uk/iiif/m2",
		"sequences": [{
			"canvases": [{
				"images": [{
					"resource": {
						"@id": "https://images.example.org/m2.jpg",
						"service": {"@id": "https://images.example.org/iiif/m2"}
					}
				}]
			}]
		}]
	}`)

	doc, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	// Service ids carry no size suffix, so the thumbnail suffix is appended.
	want := "https://images.example.org/iiif/m2/full/!200,200/0/default.jpg"
	if doc.Thumbnail != want {
		t.Errorf("thumbnail = %q, want %q", doc.Thumbnail, want)
	}
}

func TestThumbnailMalformedNavigation(t *testing.T) {
	n := newTestNormalizer(t)
	// sequences is an object rather than the expected array.
	raw := map[string]any{
		"@id":       "https://example.org/iiif/m3",
		"sequences": map[string]any{"oops": true},
	}
	doc, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if doc.Thumbnail != "" {
		t.Errorf("thumbnail = %q, want empty", doc.Thumbnail)
	}
}
