// Package proxyclient implements the remote proxy HTTP contracts of
// spec.md §6.2-§6.4: TTS clip fetch, content fetch, and translation.
// Grounded on the teacher's pkg/tts/engines/gtts.go subprocess-timeout
// pattern (context.WithTimeout guarding an external call), adapted to
// net/http. Translation batching (spec.md §6.4) holds its concurrency cap
// with a semaphore channel and paces batch requests with
// golang.org/x/time/rate.
package proxyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kestrelread/voxread/internal/article"
	"github.com/kestrelread/voxread/internal/engine"
	"golang.org/x/time/rate"
)

const (
	maxHTMLOrMarkdownBytes = 2 * 1024 * 1024
	maxBinaryBytes         = 10 * 1024 * 1024

	maxBatchChars        = 3000
	maxConcurrentBatches = 3
)

// Client is the HTTP client for the remote proxy described in spec.md §6.
type Client struct {
	httpClient *http.Client
	baseURL    string
	proxyKey   string
	limiter    *rate.Limiter
}

// New builds a Client. proxyKey may be empty (no X-Proxy-Key header sent).
func New(baseURL, proxyKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		proxyKey:   proxyKey,
		limiter:    rate.NewLimiter(rate.Limit(maxConcurrentBatches), maxConcurrentBatches),
	}
}

func (c *Client) newRequest(ctx context.Context, method string, query url.Values) (*http.Request, error) {
	u := c.baseURL
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	if c.proxyKey != "" {
		req.Header.Set("X-Proxy-Key", c.proxyKey)
	}
	return req, nil
}

// FetchClip implements spec.md §6.2: GET ?action=tts&text=...&lang=...,
// returning the fully buffered audio container. Satisfies
// internal/backend/fetch.ClipFetcher.
func (c *Client) FetchClip(ctx context.Context, text string, lang article.Lang) ([]byte, error) {
	q := url.Values{"action": {"tts"}, "text": {text}, "lang": {string(lang)}}
	req, err := c.newRequest(ctx, http.MethodGet, q)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &engine.ExternalError{Code: engine.ErrFetchFailed, Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBinaryBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBinaryBytes {
		return nil, &engine.ExternalError{Code: engine.ErrTooLarge, Message: "response exceeded size cap"}
	}
	return body, nil
}

// ContentMode selects the remote content-fetch response format.
type ContentMode string

const (
	ContentModeHTML     ContentMode = ""
	ContentModeMarkdown ContentMode = "markdown"
)

// ContentResult is the outcome of FetchContent.
type ContentResult struct {
	Body       []byte
	FinalURL   string
	IsMarkdown bool
}

// FetchContent implements spec.md §6.3: GET ?url=...[&mode=markdown].
func (c *Client) FetchContent(ctx context.Context, target string, mode ContentMode) (*ContentResult, error) {
	q := url.Values{"url": {target}}
	if mode == ContentModeMarkdown {
		q.Set("mode", "markdown")
	}
	req, err := c.newRequest(ctx, http.MethodGet, q)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &engine.ExternalError{Code: engine.ErrFetchFailed, Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	cap := maxHTMLOrMarkdownBytes
	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(cap)+1))
	if err != nil {
		return nil, err
	}
	if len(body) > cap {
		return nil, &engine.ExternalError{Code: engine.ErrTooLarge, Message: "response exceeded size cap"}
	}

	finalURL := resp.Header.Get("X-Final-URL")
	if finalURL == "" {
		finalURL = target
	}
	return &ContentResult{Body: body, FinalURL: finalURL, IsMarkdown: mode == ContentModeMarkdown}, nil
}

func classifyStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		seconds := 0
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if n, err := strconv.Atoi(ra); err == nil {
				seconds = n
			}
		}
		return engine.NewRateLimitedError(seconds)
	case http.StatusForbidden:
		return &engine.ExternalError{Code: engine.ErrProxyRejected, Message: "proxy rejected; check shared secret"}
	default:
		return &engine.ExternalError{Code: engine.ErrUpstream, Status: resp.StatusCode,
			Message: fmt.Sprintf("Proxy returned %d", resp.StatusCode)}
	}
}

// TranslateResult is the JSON body of a translation response.
type TranslateResult struct {
	TranslatedText string `json:"translatedText"`
	DetectedLang   string `json:"detectedLang"`
}

// Translate implements spec.md §6.4: POST ?action=translate, falling back
// to GET on HTTP 405.
func (c *Client) Translate(ctx context.Context, text, from, to string) (*TranslateResult, error) {
	body, _ := json.Marshal(map[string]string{"text": text, "from": from, "to": to})
	q := url.Values{"action": {"translate"}}
	req, err := c.newRequest(ctx, http.MethodPost, q)
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &engine.ExternalError{Code: engine.ErrFetchFailed, Message: err.Error()}
	}
	if resp.StatusCode == http.StatusMethodNotAllowed {
		resp.Body.Close()
		q.Set("text", text)
		q.Set("from", from)
		q.Set("to", to)
		getReq, err := c.newRequest(ctx, http.MethodGet, q)
		if err != nil {
			return nil, err
		}
		resp, err = c.httpClient.Do(getReq)
		if err != nil {
			return nil, &engine.ExternalError{Code: engine.ErrFetchFailed, Message: err.Error()}
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}
	var result TranslateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BatchTranslate implements spec.md §6.4's batching rule: group paragraphs
// into batches separated by a double-newline, max 3000 chars per batch,
// max 3 concurrent requests. The round-trip invariant (output paragraph
// count == input) is restored here by padding/merging the server's
// returned batch back to the expected paragraph count.
func (c *Client) BatchTranslate(ctx context.Context, paragraphs []string, from, to string) ([]string, error) {
	batches := buildBatches(paragraphs, maxBatchChars)

	results := make([][]string, len(batches))
	errs := make([]error, len(batches))
	sem := make(chan struct{}, maxConcurrentBatches)
	done := make(chan int, len(batches))

	for i, batch := range batches {
		i, batch := i, batch
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; done <- i }()
			if err := c.limiter.Wait(ctx); err != nil {
				errs[i] = err
				return
			}
			joined := joinBatch(batch)
			res, err := c.Translate(ctx, joined, from, to)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = splitBatch(res.TranslatedText, len(batch))
		}()
	}
	for range batches {
		<-done
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var out []string
	for _, r := range results {
		out = append(out, r...)
	}
	return restoreParagraphCount(out, len(paragraphs)), nil
}

func buildBatches(paragraphs []string, maxChars int) [][]string {
	var batches [][]string
	var current []string
	currentLen := 0
	for _, p := range paragraphs {
		if currentLen > 0 && currentLen+2+len(p) > maxChars {
			batches = append(batches, current)
			current = nil
			currentLen = 0
		}
		current = append(current, p)
		currentLen += len(p) + 2
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func joinBatch(b []string) string {
	out := ""
	for i, p := range b {
		if i > 0 {
			out += "\n\n"
		}
		out += p
	}
	return out
}

func splitBatch(translated string, expectedCount int) []string {
	parts := splitOnDoubleNewline(translated)
	return restoreParagraphCount(parts, expectedCount)
}

func splitOnDoubleNewline(s string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '\n' && s[i+1] == '\n' {
			out = append(out, s[start:i])
			start = i + 2
			i++
		}
	}
	out = append(out, s[start:])
	return out
}

// restoreParagraphCount pads (with empty strings) or merges
// (by concatenating overflow into the last kept element) so len(out) ==
// want, implementing spec.md §6.4's round-trip invariant.
func restoreParagraphCount(got []string, want int) []string {
	if want == 0 {
		return nil
	}
	if len(got) == want {
		return got
	}
	if len(got) < want {
		out := make([]string, want)
		copy(out, got)
		for i := len(got); i < want; i++ {
			out[i] = ""
		}
		return out
	}
	out := make([]string, want)
	copy(out, got[:want-1])
	merged := got[want-1]
	for _, extra := range got[want:] {
		merged += " " + extra
	}
	out[want-1] = merged
	return out
}
