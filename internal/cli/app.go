package cli

import (
	"errors"
	"fmt"

	"github.com/ppiankov/symptomlog/internal/cache"
	"github.com/ppiankov/symptomlog/internal/llm"
	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/observe"
	"github.com/ppiankov/symptomlog/internal/pipeline"
	"github.com/ppiankov/symptomlog/internal/store"
	"github.com/ppiankov/symptomlog/internal/taxonomy"
)

type appOptions struct {
	persist bool // open the SQLite store
	recap   bool // attach LLM recaps when a provider is configured
	metrics *observe.Metrics
}

// app holds the collaborators shared by commands
type app struct {
	cfg      *model.Config
	taxonomy *taxonomy.Taxonomy
	pipeline *pipeline.Pipeline
	store    *store.SQLiteStore
	recapper *llm.Recapper
}

func newApp(cfg *model.Config, opts appOptions) (*app, error) {
	tax, err := loadTaxonomy(cfg.Extraction.TaxonomyFile)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, taxonomy: tax}
	popts := pipeline.Options{
		Taxonomy:     tax,
		WindowBefore: &cfg.Extraction.WindowBefore,
		WindowAfter:  &cfg.Extraction.WindowAfter,
		Cache:        cache.New(cfg.Cache),
		CacheTTL:     cfg.Cache.DiskTTL,
		Metrics:      opts.metrics,
		Logger:       observe.Logger(),
	}

	if opts.recap && cfg.LLM.Provider != "" {
		r, err := llm.NewRecapper(llm.ConfigFromModel(cfg.LLM, cfg.Source), tax)
		if err != nil {
			return nil, fmt.Errorf("configure recap: %w", err)
		}
		a.recapper = r.WithMetrics(opts.metrics)
		popts.Recapper = a.recapper
	}

	if opts.persist {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		a.store = st
		popts.Store = st
	}

	a.pipeline = pipeline.New(popts)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// loadTaxonomy loads path, or the built-in taxonomy when path is empty
func loadTaxonomy(path string) (*taxonomy.Taxonomy, error) {
	if path == "" {
		return taxonomy.Default(), nil
	}
	tax, err := taxonomy.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}
	return tax, nil
}
