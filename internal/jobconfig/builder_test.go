package jobconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbscrape/scrape-cli/internal/model"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestBuild_MissingCustomerName(t *testing.T) {
	b := NewBuilder()
	_, err := b.Build(FormState{
		CustomerName: "   ",
		Sources:      []SourceForm{{Kind: "website", URL: "https://a.com"}},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, CodeMissingCustomerName, verr.Code)
}

func TestBuild_NoSources(t *testing.T) {
	tests := []struct {
		name    string
		sources []SourceForm
	}{
		{"empty list", nil},
		{"website without url", []SourceForm{{Kind: "website"}}},
		{"pdf without uploaded file", []SourceForm{{Kind: "pdf", Title: "doc"}}},
		{"mixed unresolved", []SourceForm{{Kind: "website", URL: "  "}, {Kind: "pdf"}}},
	}

	b := NewBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(FormState{CustomerName: "Acme", Sources: tt.sources})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, CodeNoSources, verr.Code)
		})
	}
}

func TestBuild_WebsiteDefaults(t *testing.T) {
	b := NewBuilder()
	cfg, err := b.Build(FormState{
		CustomerName: "Acme",
		Sources:      []SourceForm{{Kind: "website", URL: "https://a.com"}},
	})
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)

	src := cfg.Sources[0]
	// Absent field falls back to the builder default of 100, not the CLI's
	// offered default of 50.
	assert.Equal(t, DefaultMaxArticles, src.MaxArticles)
	assert.Equal(t, 100, src.MaxArticles)
	assert.Zero(t, src.DelaySeconds)
	assert.NotEmpty(t, src.ID)
	assert.Equal(t, model.SourceTypeWebsite, src.Type)
}

func TestBuild_ExplicitValuesKept(t *testing.T) {
	b := NewBuilder()
	cfg, err := b.Build(FormState{
		CustomerName: "Acme",
		Sources: []SourceForm{{
			Kind:         "website",
			URL:          "https://a.com",
			MaxArticles:  intPtr(10),
			DelaySeconds: floatPtr(2.5),
			Description:  "docs site",
		}},
	})
	require.NoError(t, err)

	src := cfg.Sources[0]
	assert.Equal(t, 10, src.MaxArticles)
	assert.Equal(t, 2.5, src.DelaySeconds)
	assert.Equal(t, "docs site", src.Description)
}

func TestBuild_RangeValidation(t *testing.T) {
	tests := []struct {
		name string
		row  SourceForm
	}{
		{"max articles too high", SourceForm{Kind: "website", URL: "https://a.com", MaxArticles: intPtr(500)}},
		{"max articles zero", SourceForm{Kind: "website", URL: "https://a.com", MaxArticles: intPtr(0)}},
		{"delay too long", SourceForm{Kind: "website", URL: "https://a.com", DelaySeconds: floatPtr(60)}},
		{"delay negative", SourceForm{Kind: "website", URL: "https://a.com", DelaySeconds: floatPtr(-1)}},
		{"bad url", SourceForm{Kind: "website", URL: "not a url"}},
	}

	b := NewBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(FormState{CustomerName: "Acme", Sources: []SourceForm{tt.row}})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, CodeInvalidSource, verr.Code)
		})
	}
}

func TestBuild_PDFSource(t *testing.T) {
	b := NewBuilder()
	cfg, err := b.Build(FormState{
		CustomerName: "Acme",
		Sources: []SourceForm{{
			Kind:     "pdf",
			FilePath: "uploads/handbook.pdf",
			Title:    "Handbook",
			Author:   "HR",
		}},
	})
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)

	src := cfg.Sources[0]
	assert.Equal(t, model.SourceTypePDF, src.Type)
	assert.Equal(t, model.PDFPlaceholderURL, src.URL)
	assert.Equal(t, model.SourceTypePDF, src.SourceType)
	assert.Equal(t, "uploads/handbook.pdf", src.FilePath)
	assert.Equal(t, "Handbook", src.Title)
}

func TestBuild_UnresolvedRowsSkippedWhenOthersResolve(t *testing.T) {
	b := NewBuilder()
	cfg, err := b.Build(FormState{
		CustomerName: "Acme",
		Sources: []SourceForm{
			{Kind: "pdf"}, // upload never completed; row does not resolve
			{Kind: "website", URL: "https://a.com"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, cfg.Sources, 1)
	assert.Equal(t, "https://a.com", cfg.Sources[0].URL)
}

func TestBuild_KeepsProvidedSourceID(t *testing.T) {
	b := NewBuilder()
	cfg, err := b.Build(FormState{
		CustomerName: "Acme",
		Sources:      []SourceForm{{ID: "row-1", Kind: "website", URL: "https://a.com"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "row-1", cfg.Sources[0].ID)
}

func TestBuild_CustomDefaultMaxArticles(t *testing.T) {
	b := NewBuilder()
	b.DefaultMaxArticles = 25
	cfg, err := b.Build(FormState{
		CustomerName: "Acme",
		Sources:      []SourceForm{{Kind: "website", URL: "https://a.com"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Sources[0].MaxArticles)
}
