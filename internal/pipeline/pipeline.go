package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ppiankov/symptomlog/internal/cache"
	"github.com/ppiankov/symptomlog/internal/extract"
	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/observe"
	"github.com/ppiankov/symptomlog/internal/score"
	"github.com/ppiankov/symptomlog/internal/taxonomy"
)

// ErrEmptyUserID is returned by Record when the submission has no user
var ErrEmptyUserID = errors.New("user id is required")

// EntryStore persists recorded entries
type EntryStore interface {
	Save(ctx context.Context, e *model.Entry) error
}

// Recapper produces an optional plain-language recap of an entry
type Recapper interface {
	Recap(ctx context.Context, e *model.Entry) (*model.Recap, error)
}

// Submission is one journal transcript to record
type Submission struct {
	UserID     string    `json:"user_id"`
	Transcript string    `json:"transcript"`
	RecordedAt time.Time `json:"recorded_at"` // Zero means now
}

// Options wires a Pipeline. Only Taxonomy-or-Extractor defaults are filled
// in; every other collaborator is optional.
type Options struct {
	Taxonomy     *taxonomy.Taxonomy // nil = built-in taxonomy
	WindowBefore *int               // nil = extract.DefaultWindowBefore; 0 is a valid window
	WindowAfter  *int               // nil = extract.DefaultWindowAfter
	Scorer       *score.Scorer

	Cache    cache.Cache
	CacheTTL time.Duration

	Store    EntryStore
	Recapper Recapper
	Metrics  *observe.Metrics
	Logger   zerolog.Logger

	Now   func() time.Time
	NewID func() string
}

// Pipeline runs extraction, scoring, recap and persistence for transcripts
type Pipeline struct {
	extractor *extract.Extractor
	scorer    *score.Scorer
	cache     cache.Cache
	cacheTTL  time.Duration
	store     EntryStore
	recapper  Recapper
	metrics   *observe.Metrics
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// New creates a pipeline from opts
func New(opts Options) *Pipeline {
	before, after := extract.DefaultWindowBefore, extract.DefaultWindowAfter
	if opts.WindowBefore != nil {
		before = *opts.WindowBefore
	}
	if opts.WindowAfter != nil {
		after = *opts.WindowAfter
	}

	p := &Pipeline{
		extractor: extract.New(opts.Taxonomy, extract.WithWindow(before, after)),
		scorer:    opts.Scorer,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		store:     opts.Store,
		recapper:  opts.Recapper,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if p.scorer == nil {
		p.scorer = score.NewScorer()
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

// Taxonomy returns the taxonomy in use
func (p *Pipeline) Taxonomy() *taxonomy.Taxonomy { return p.extractor.Taxonomy() }

// Analyze extracts and scores a transcript without persisting anything
func (p *Pipeline) Analyze(ctx context.Context, transcript string) (*model.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, cacheState := p.extract(ctx, transcript)

	analysis := &model.Analysis{
		Result:     result,
		Confidence: p.scorer.Calculate(result),
	}

	if p.metrics != nil {
		p.metrics.RecordAnalysis(ctx, analysis, cacheState, time.Since(start))
	}
	p.logger.Debug().
		Int("symptoms", len(result.Symptoms)).
		Int("activities", len(result.Activities)).
		Int("triggers", len(result.Triggers)).
		Int("confidence", analysis.Confidence.Index).
		Str("cache", cacheState).
		Msg("transcript analyzed")

	return analysis, nil
}

func (p *Pipeline) extract(ctx context.Context, transcript string) (model.ExtractionResult, string) {
	if p.cache == nil {
		return p.extractor.Extract(transcript), "off"
	}

	key := cache.Key(p.extractor.Fingerprint(), transcript)
	if result, ok := cache.GetResult(p.cache, key); ok {
		p.recordLookup(ctx, true)
		return result, "hit"
	}
	p.recordLookup(ctx, false)

	result := p.extractor.Extract(transcript)
	if err := cache.SetResult(p.cache, key, result, p.cacheTTL); err != nil {
		p.logger.Warn().Err(err).Msg("cache write failed")
	}
	return result, "miss"
}

func (p *Pipeline) recordLookup(ctx context.Context, hit bool) {
	if p.metrics != nil {
		p.metrics.RecordCacheLookup(ctx, hit)
	}
}

// Record analyzes a submission and turns it into an Entry. The recap runs
// after scoring and never changes it; a recap failure is logged, not returned.
// The entry is saved when a store is configured.
func (p *Pipeline) Record(ctx context.Context, sub Submission) (*model.Entry, error) {
	userID := strings.TrimSpace(sub.UserID)
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	analysis, err := p.Analyze(ctx, sub.Transcript)
	if err != nil {
		return nil, err
	}

	recordedAt := sub.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = p.now()
	}

	entry := &model.Entry{
		ID:         p.newID(),
		UserID:     userID,
		RecordedAt: recordedAt.UTC(),
		Result:     analysis.Result,
		Confidence: analysis.Confidence,
	}

	if p.recapper != nil {
		recap, err := p.recapper.Recap(ctx, entry)
		if err != nil {
			p.logger.Warn().Err(err).Str("entry_id", entry.ID).Msg("recap failed")
		} else if recap != nil {
			entry.Recap = recap
		}
	}

	if p.store != nil {
		err := p.store.Save(ctx, entry)
		if p.metrics != nil {
			p.metrics.RecordEntry(ctx, err)
		}
		if err != nil {
			return nil, fmt.Errorf("save entry: %w", err)
		}
		p.logger.Info().
			Str("entry_id", entry.ID).
			Str("user_id", entry.UserID).
			Int("symptoms", len(entry.Result.Symptoms)).
			Msg("entry recorded")
	}

	return entry, nil
}
