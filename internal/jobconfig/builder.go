// Package jobconfig turns user-entered form state into a validated
// JobConfig. It is pure: no network, no side effects.
package jobconfig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kbscrape/scrape-cli/internal/model"
)

// DefaultMaxArticles is the builder's fallback when a website source leaves
// max articles unset. Note this intentionally differs from the default the
// CLI offers when adding a source (50, see cmd); the two values are an
// external contract and must not be unified.
const DefaultMaxArticles = 100

// Validation error codes.
const (
	CodeMissingCustomerName = "missing_customer_name"
	CodeNoSources           = "no_sources"
	CodeInvalidSource       = "invalid_source"
)

// ValidationError describes why a form state cannot become a JobConfig.
type ValidationError struct {
	Code    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("jobconfig: %s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("jobconfig: %s: %s", e.Code, e.Message)
}

// SourceForm is one source row as entered by the user. For website rows the
// URL is required; for PDF rows FilePath must have been assigned by a prior
// successful upload. Rows missing these simply do not resolve.
type SourceForm struct {
	ID           string   `yaml:"id,omitempty"`
	Kind         string   `yaml:"type"`
	URL          string   `yaml:"url,omitempty"`
	MaxArticles  *int     `yaml:"max_articles,omitempty"`
	DelaySeconds *float64 `yaml:"delay,omitempty"`
	Description  string   `yaml:"description,omitempty"`
	FilePath     string   `yaml:"pdf_file,omitempty"`
	Title        string   `yaml:"title,omitempty"`
	Author       string   `yaml:"author,omitempty"`
}

// FormState mirrors the job form.
type FormState struct {
	CustomerName string       `yaml:"customer_name"`
	TeamID       string       `yaml:"team_id,omitempty"`
	Sources      []SourceForm `yaml:"sources"`
}

// websiteRules holds the range constraints for website sources.
type websiteRules struct {
	URL         string  `validate:"required,url"`
	MaxArticles int     `validate:"min=1,max=200"`
	Delay       float64 `validate:"min=0,max=10"`
}

// Builder validates and serializes form state into a JobConfig.
type Builder struct {
	// DefaultMaxArticles is applied when a website row leaves the field
	// unset. Defaults to 100.
	DefaultMaxArticles int

	validate *validator.Validate
}

// NewBuilder creates a Builder with the standard defaults.
func NewBuilder() *Builder {
	return &Builder{
		DefaultMaxArticles: DefaultMaxArticles,
		validate:           validator.New(),
	}
}

// Build resolves the form into a JobConfig or fails with a
// *ValidationError. Rows that resolve get a stable source id for UI lookup.
func (b *Builder) Build(form FormState) (*model.JobConfig, error) {
	name := strings.TrimSpace(form.CustomerName)
	if name == "" {
		return nil, &ValidationError{
			Code:    CodeMissingCustomerName,
			Field:   "customer_name",
			Message: "customer name is required",
		}
	}

	var sources []model.Source
	for i, row := range form.Sources {
		src, ok, err := b.resolve(i, row)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return nil, &ValidationError{
			Code:    CodeNoSources,
			Field:   "sources",
			Message: "at least one source with a URL or an uploaded PDF is required",
		}
	}

	return &model.JobConfig{
		CustomerName: name,
		TeamID:       strings.TrimSpace(form.TeamID),
		Sources:      sources,
	}, nil
}

func (b *Builder) resolve(idx int, row SourceForm) (model.Source, bool, error) {
	id := row.ID
	if id == "" {
		id = uuid.NewString()
	}

	if row.Kind == model.SourceTypePDF || (row.Kind == "" && row.FilePath != "") {
		if strings.TrimSpace(row.FilePath) == "" {
			// No completed upload yet; the row does not resolve.
			return model.Source{}, false, nil
		}
		return model.Source{
			ID:          id,
			Type:        model.SourceTypePDF,
			URL:         model.PDFPlaceholderURL,
			SourceType:  model.SourceTypePDF,
			FilePath:    row.FilePath,
			Title:       row.Title,
			Author:      row.Author,
			Description: row.Description,
		}, true, nil
	}

	url := strings.TrimSpace(row.URL)
	if url == "" {
		return model.Source{}, false, nil
	}

	maxArticles := b.DefaultMaxArticles
	if row.MaxArticles != nil {
		maxArticles = *row.MaxArticles
	}
	var delay float64
	if row.DelaySeconds != nil {
		delay = *row.DelaySeconds
	}

	rules := websiteRules{URL: url, MaxArticles: maxArticles, Delay: delay}
	if err := b.validate.Struct(rules); err != nil {
		return model.Source{}, false, &ValidationError{
			Code:    CodeInvalidSource,
			Field:   fmt.Sprintf("sources[%d]", idx),
			Message: validationMessage(err),
		}
	}

	return model.Source{
		ID:           id,
		Type:         model.SourceTypeWebsite,
		URL:          url,
		MaxArticles:  maxArticles,
		DelaySeconds: delay,
		Description:  row.Description,
	}, true, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Field() {
		case "URL":
			return "url must be a valid http(s) URL"
		case "MaxArticles":
			return "max articles must be between 1 and 200"
		case "Delay":
			return "delay must be between 0 and 10 seconds"
		}
	}
	return err.Error()
}
