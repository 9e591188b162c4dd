package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/pipeline"
)

// Recorder turns a submission into a stored entry
type Recorder interface {
	Record(ctx context.Context, sub pipeline.Submission) (*model.Entry, error)
}

// RecordJob records one submission
type RecordJob struct {
	Index      int
	Line       int
	Submission pipeline.Submission
	Recorder   Recorder
}

// Execute runs the job
func (j *RecordJob) Execute(ctx context.Context) Result {
	entry, err := j.Recorder.Record(ctx, j.Submission)
	return &BatchResult{
		Index:  j.Index,
		Line:   j.Line,
		UserID: j.Submission.UserID,
		Entry:  entry,
		Error:  err,
	}
}

// BatchResult is the outcome of one batch item
type BatchResult struct {
	Index  int          // Position in the input
	Line   int          // Source line number, 1-based
	UserID string       // Submitting user
	Entry  *model.Entry // nil on error
	Error  error
}

// GetError returns the item error
func (r *BatchResult) GetError() error {
	return r.Error
}

// BatchItem is a parsed submission with its source line
type BatchItem struct {
	Line       int
	Submission pipeline.Submission
}

// BatchProcessor records many submissions concurrently
type BatchProcessor struct {
	recorder    Recorder
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(recorder Recorder, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		recorder:    recorder,
		concurrency: concurrency,
	}
}

// Process records items concurrently and returns results in input order
func (b *BatchProcessor) Process(ctx context.Context, items []BatchItem) []*BatchResult {
	if len(items) == 0 {
		return []*BatchResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, item := range items {
			job := &RecordJob{
				Index:      i,
				Line:       item.Line,
				Submission: item.Submission,
				Recorder:   b.recorder,
			}
			if !pool.Submit(job) {
				return
			}
		}
	}()

	results := make([]*BatchResult, 0, len(items))
	for r := range pool.Results() {
		results = append(results, r.(*BatchResult))
	}

	// Items never executed because ctx was cancelled
	if len(results) < len(items) {
		done := make(map[int]bool, len(results))
		for _, r := range results {
			done[r.Index] = true
		}
		for i, item := range items {
			if !done[i] {
				results = append(results, &BatchResult{
					Index:  i,
					Line:   item.Line,
					UserID: item.Submission.UserID,
					Error:  fmt.Errorf("not processed: %w", context.Cause(ctx)),
				})
			}
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	return results
}

// ProcessFile reads submissions from path and records them
func (b *BatchProcessor) ProcessFile(ctx context.Context, path, defaultUser string) ([]*BatchResult, error) {
	items, err := ReadSubmissionsFile(path, defaultUser)
	if err != nil {
		return nil, fmt.Errorf("read submissions: %w", err)
	}
	return b.Process(ctx, items), nil
}

// ReadSubmissionsFile opens path ("-" for stdin) and parses it with ReadSubmissions
func ReadSubmissionsFile(path, defaultUser string) ([]BatchItem, error) {
	if path == "-" {
		return ReadSubmissions(os.Stdin, defaultUser)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadSubmissions(file, defaultUser)
}

// ReadSubmissions parses one submission per line. Lines starting with '{' are
// JSON objects {"user_id", "transcript", "recorded_at"}; any other line is a
// bare transcript for defaultUser. Blank lines and '#' comments are skipped.
func ReadSubmissions(r io.Reader, defaultUser string) ([]BatchItem, error) {
	var items []BatchItem

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sub := pipeline.Submission{UserID: defaultUser, Transcript: line}
		if strings.HasPrefix(line, "{") {
			var parsed pipeline.Submission
			if err := json.Unmarshal([]byte(line), &parsed); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if parsed.UserID == "" {
				parsed.UserID = defaultUser
			}
			sub = parsed
		}

		items = append(items, BatchItem{Line: lineNo, Submission: sub})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}

	return items, nil
}
