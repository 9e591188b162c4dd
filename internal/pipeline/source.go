package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ppiankov/symptomlog/internal/model"
	"github.com/ppiankov/symptomlog/internal/util"
)

// ErrSourceTooLarge is returned when a source exceeds the configured size
var ErrSourceTooLarge = errors.New("source exceeds size limit")

// Source is a loaded transcript
type Source struct {
	Text        string
	Origin      string // "stdin", a file path or the final URL
	ContentType string // HTTP sources only
}

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// SourceLoader reads transcripts from stdin, files or HTTP(S) URLs
type SourceLoader struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	attempts   int
	stdin      io.Reader
}

var fetchSleepFunc = time.Sleep

// NewSourceLoader creates a loader from cfg
func NewSourceLoader(cfg model.SourceConfig) *SourceLoader {
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	return &SourceLoader{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: util.NewTransport(cfg.HTTPProxy, cfg.HTTPSProxy),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		attempts:  3,
		stdin:     os.Stdin,
	}
}

// Load reads src: "-" is stdin, http(s) URLs are fetched (HTML reduced to its
// visible text) and anything else is a file path
func (l *SourceLoader) Load(ctx context.Context, src string) (*Source, error) {
	switch {
	case src == "-":
		data, err := l.readLimited(l.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return &Source{Text: string(data), Origin: "stdin"}, nil

	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		return l.FetchWithRetry(ctx, src)

	default:
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("open source: %w", err)
		}
		defer f.Close()
		data, err := l.readLimited(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src, err)
		}
		return &Source{Text: string(data), Origin: src}, nil
	}
}

// FetchWithRetry fetches rawURL, retrying 429, 5xx and transport errors with
// exponential backoff
func (l *SourceLoader) FetchWithRetry(ctx context.Context, rawURL string) (*Source, error) {
	var lastErr error
	backoff := 500 * time.Millisecond

	for attempt := 1; attempt <= l.attempts; attempt++ {
		src, err := l.fetch(ctx, rawURL)
		if err == nil {
			return src, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || attempt == l.attempts || ctx.Err() != nil {
			break
		}
		fetchSleepFunc(backoff)
		backoff *= 2
	}
	return nil, lastErr
}

type transportError struct{ err error }

func (e *transportError) Error() string { return "fetch: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func (l *SourceLoader) fetch(ctx context.Context, rawURL string) (*Source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	req.Header.Set("Accept", "text/plain,text/html;q=0.9,*/*;q=0.5")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	body, err := l.readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	text := string(body)
	if isHTML(contentType, body) {
		text, err = VisibleText(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
	}

	return &Source{
		Text:        text,
		Origin:      resp.Request.URL.String(),
		ContentType: contentType,
	}, nil
}

func (l *SourceLoader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrSourceTooLarge, l.maxBytes)
	}
	return data, nil
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	var te *transportError
	if errors.As(err, &te) {
		return !errors.Is(te.err, context.Canceled) && !errors.Is(te.err, context.DeadlineExceeded)
	}
	return false
}

func isHTML(contentType string, body []byte) bool {
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			return mt == "text/html" || mt == "application/xhtml+xml"
		}
	}
	return strings.Contains(strings.ToLower(http.DetectContentType(body)), "text/html")
}

var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Head:     true,
	atom.Template: true,
	atom.Svg:      true,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Article: true, atom.Section: true, atom.Blockquote: true, atom.Pre: true,
}

// VisibleText returns the human-visible text of an HTML document: script,
// style and head content are dropped, block elements become line breaks and
// runs of whitespace collapse to one space
func VisibleText(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)

	var (
		lines []string
		cur   strings.Builder
		skip  int
	)
	flush := func() {
		if s := strings.Join(strings.Fields(cur.String()), " "); s != "" {
			lines = append(lines, s)
		}
		cur.Reset()
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			flush()
			return strings.Join(lines, "\n"), nil

		case html.StartTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skippedElements[a] {
				skip++
			} else if blockElements[a] {
				flush()
			}

		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if blockElements[atom.Lookup(name)] {
				flush()
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skippedElements[a] {
				if skip > 0 {
					skip--
				}
			} else if blockElements[a] {
				flush()
			}

		case html.TextToken:
			if skip == 0 {
				cur.Write(z.Text())
				cur.WriteByte(' ')
			}
		}
	}
}
