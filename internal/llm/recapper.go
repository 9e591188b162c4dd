package llm

import (
	"context"
	"fmt"

	"github.com/ppiankov/symptomlog/internal/extract"
	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/observe"
	"github.com/ppiankov/symptomlog/internal/taxonomy"
)

// Recapper attaches LLM recaps to entries. A Recapper without a provider is
// disabled and returns no recap.
type Recapper struct {
	provider Provider
	config   Config
	taxonomy *taxonomy.Taxonomy
	metrics  *observe.Metrics
}

// NewRecapper builds a Recapper from config. tax is used by strict mode;
// nil selects the built-in taxonomy.
func NewRecapper(config Config, tax *taxonomy.Taxonomy) (*Recapper, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return NewRecapperWithProvider(provider, config, tax), nil
}

// NewRecapperWithProvider wraps an existing provider
func NewRecapperWithProvider(provider Provider, config Config, tax *taxonomy.Taxonomy) *Recapper {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return &Recapper{provider: provider, config: config, taxonomy: tax}
}

// WithMetrics records recap requests on m
func (r *Recapper) WithMetrics(m *observe.Metrics) *Recapper {
	r.metrics = m
	return r
}

// IsEnabled reports whether a provider is configured
func (r *Recapper) IsEnabled() bool {
	return r.provider != nil
}

// ProviderName returns the provider name, or "" when disabled
func (r *Recapper) ProviderName() string {
	if r.provider == nil {
		return ""
	}
	return r.provider.Name()
}

// Recap generates a recap for e. It returns nil, nil when disabled.
func (r *Recapper) Recap(ctx context.Context, e *model.Entry) (*model.Recap, error) {
	if r.provider == nil {
		return nil, nil
	}

	resp, err := r.provider.Recap(ctx, RecapRequest{
		Entry:     *e,
		Model:     r.config.Model,
		MaxTokens: r.config.MaxTokens,
	})
	if r.metrics != nil {
		r.metrics.RecordRecap(ctx, r.provider.Name(), err)
	}
	if err != nil {
		return nil, fmt.Errorf("recap with %s: %w", r.provider.Name(), err)
	}

	recap := &model.Recap{
		Enabled:  true,
		Provider: r.provider.Name(),
		Model:    resp.Model,
		Strict:   r.config.Strict,
		Text:     resp.Text,
	}
	if r.config.Strict {
		recap.Warnings = UnextractedMentions(resp.Text, e.Result, r.taxonomy)
	}
	return recap, nil
}

// UnextractedMentions lists taxonomy symptoms whose keywords appear in text
// although they are absent from result
func UnextractedMentions(text string, result model.ExtractionResult, tax *taxonomy.Taxonomy) []string {
	var warnings []string
	for _, p := range tax.Symptoms() {
		if _, ok := result.Symptoms[p.Name]; ok {
			continue
		}
		if extract.Contains(text, p.Keywords) {
			warnings = append(warnings, fmt.Sprintf("recap mentions %s, which was not extracted", p.Name))
		}
	}
	return warnings
}
