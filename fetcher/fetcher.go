package fetcher

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/cnosuke/httpget/client"
	"github.com/cnosuke/httpget/fault"
	"github.com/cnosuke/httpget/request"
	"github.com/cnosuke/httpget/types"
	"go.uber.org/zap"
)

type Config struct {
	MaxWorkers       int
	DefaultMaxLength int
}

// Fetcher defines the interface for fetching and processing URL content.
type Fetcher interface {
	// Head issues a HEAD request and returns the final response metadata.
	Head(ctx context.Context, opts request.Options) (*types.FetchResponse, error)

	// Fetch fetches and processes content from a single URL.
	// It handles content extraction (using readability), Markdown
	// conversion, and content trimming based on parameters.
	Fetch(ctx context.Context, opts request.Options, maxLength int, startIndex int, raw bool) (*types.FetchResponse, error)

	// FetchMultiple fetches and processes content from multiple URLs.
	// It handles parallel fetching and content reallocation logic.
	FetchMultiple(ctx context.Context, urls []string, maxLength int, raw bool) (*types.MultipleFetchResponse, error)
}

// httpFetcher implements the Fetcher interface on top of client.Client.
type httpFetcher struct {
	client           *client.Client
	maxWorkers       int
	defaultMaxLength int
}

// NewHTTPFetcher creates a new httpFetcher.
func NewHTTPFetcher(c *client.Client, cfg *Config) (Fetcher, error) {
	zap.S().Infow("creating new HTTP fetcher",
		"max_workers", cfg.MaxWorkers,
		"default_max_length", cfg.DefaultMaxLength)

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	return &httpFetcher{
		client:           c,
		maxWorkers:       maxWorkers,
		defaultMaxLength: cfg.DefaultMaxLength,
	}, nil
}

func (f *httpFetcher) get(ctx context.Context, method string, opts request.Options) (*types.Result, error) {
	call, err := f.client.Go(ctx, method, opts)
	if err != nil {
		return nil, err
	}
	<-call.Done()
	return call.Result()
}

// Head issues a HEAD request.
func (f *httpFetcher) Head(ctx context.Context, opts request.Options) (*types.FetchResponse, error) {
	zap.S().Debugw("head URL", "url", opts.URL)

	res, err := f.get(ctx, http.MethodHead, opts)
	if err != nil {
		return nil, err
	}
	return newFetchResponse(res, ""), nil
}

// Fetch fetches and processes content from a single URL.
func (f *httpFetcher) Fetch(ctx context.Context, opts request.Options, maxLength int, startIndex int, raw bool) (*types.FetchResponse, error) {
	zap.S().Debugw("fetching URL",
		"url", opts.URL,
		"max_length", maxLength,
		"start_index", startIndex,
		"raw", raw)

	res, err := f.get(ctx, http.MethodGet, opts)
	if err != nil {
		return nil, err
	}

	processedContent := processContent(res, raw)

	// Apply trimming
	trimmedContent := trimContent(processedContent, startIndex, maxLength)
	if len(processedContent) != len(trimmedContent) {
		zap.S().Debugw("content trimmed",
			"original_length", len(processedContent),
			"start_index", startIndex,
			"trimmed_length", len(trimmedContent))
	}

	return newFetchResponse(res, trimmedContent), nil
}

func newFetchResponse(res *types.Result, content string) *types.FetchResponse {
	return &types.FetchResponse{
		URL:         res.URL,
		Code:        res.Code,
		Headers:     res.Headers,
		ContentType: res.Header.Get("Content-Type"),
		Content:     content,
		OriginalURL: res.OriginalURL,
		Redirects:   res.Redirects,
	}
}

func processContent(res *types.Result, raw bool) string {
	body := string(res.Body)
	contentType := res.Header.Get("Content-Type")
	switch {
	case raw:
		zap.S().Debugw("raw mode enabled", "url", res.URL)
		return body
	case strings.Contains(contentType, "text/html"):
		return processHTMLContent(body, res.URL)
	default:
		zap.S().Debugw("non-HTML content", "url", res.URL, "content_type", contentType)
		return body
	}
}

// trimContent helper function to trim content based on startIndex and maxLength
func trimContent(content string, startIndex int, maxLength int) string {
	contentLength := len(content)
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex >= contentLength {
		return ""
	}
	endIndex := contentLength
	if maxLength > 0 {
		potentialEndIndex := startIndex + maxLength
		if potentialEndIndex < endIndex {
			endIndex = potentialEndIndex
		}
	}
	return content[startIndex:endIndex]
}

// NewFetchError converts a request failure into its wire form.
func NewFetchError(err error, url string) *types.FetchError {
	fe := fault.Classify(err, url)
	return &types.FetchError{
		Kind:    fe.Kind.String(),
		Code:    fe.Code,
		Status:  fe.Status,
		URL:     fe.URL,
		Message: fe.Message,
	}
}

type fetchResult struct {
	res *types.Result
	err error
}

// FetchMultiple fetches content from multiple URLs with a bounded worker
// pool and allocates content length between them.
func (f *httpFetcher) FetchMultiple(ctx context.Context, urls []string, maxLength int, raw bool) (*types.MultipleFetchResponse, error) {
	zap.S().Debugw("fetching multiple URLs",
		"count", len(urls),
		"max_length", maxLength,
		"raw", raw,
		"workers", f.maxWorkers)

	// Default value if maxLength is not specified
	if maxLength <= 0 {
		maxLength = f.defaultMaxLength
	}

	results := make([]fetchResult, len(urls))
	jobs := make(chan int, len(urls))

	nWorkers := f.maxWorkers
	if nWorkers > len(urls) {
		nWorkers = len(urls)
	}

	wg := &sync.WaitGroup{}
	for w := 1; w <= nWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				zap.S().Debugw("initiating fetch for URL", "worker_id", workerID, "url", urls[i])
				res, err := f.get(ctx, http.MethodGet, request.Options{URL: urls[i]})
				results[i] = fetchResult{res: res, err: err}
			}
		}(w)
	}
	for i := range urls {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// --- Content Processing and Allocation ---

	type processedResult struct {
		Key                 string // The requested URL
		Result              *types.Result
		FullContent         string // Content after readability/markdown, before any trimming
		FinalTrimmedContent string // Content after allocation and trimming
	}

	processedResults := []*processedResult{}
	finalErrors := make(map[string]*types.FetchError)

	for i, r := range results {
		if r.err != nil {
			finalErrors[urls[i]] = NewFetchError(r.err, urls[i])
			zap.S().Debugw("fetch failed", "url", urls[i], "error", r.err)
			continue
		}
		processedResults = append(processedResults, &processedResult{
			Key:         urls[i],
			Result:      r.res,
			FullContent: processContent(r.res, raw),
		})
	}

	// --- Allocation Logic ---
	numSuccessful := len(processedResults)
	var initialAllocation int
	if numSuccessful > 0 {
		initialAllocation = maxLength / numSuccessful
	}

	zap.S().Debugw("calculated initial allocation",
		"num_successful", numSuccessful,
		"total_max_length", maxLength,
		"initial_allocation_per_url", initialAllocation)

	totalUsed := 0
	beneficiaries := []*processedResult{} // URLs that were truncated by initial allocation

	for _, res := range processedResults {
		res.FinalTrimmedContent = trimContent(res.FullContent, 0, initialAllocation)
		totalUsed += len(res.FinalTrimmedContent)
		if len(res.FullContent) > initialAllocation {
			beneficiaries = append(beneficiaries, res)
		}
	}

	// Reallocation
	remainingChars := maxLength - totalUsed
	if remainingChars > 0 && len(beneficiaries) > 0 {
		perURLReallocation := remainingChars / len(beneficiaries)
		zap.S().Debugw("performing reallocation",
			"remaining_chars", remainingChars,
			"num_beneficiaries", len(beneficiaries),
			"per_url_reallocation", perURLReallocation)

		for _, b := range beneficiaries {
			finalTrimmed := trimContent(b.FullContent, 0, initialAllocation+perURLReallocation)
			totalUsed += len(finalTrimmed) - len(b.FinalTrimmedContent)
			b.FinalTrimmedContent = finalTrimmed
		}
	}

	finalResponse := &types.MultipleFetchResponse{
		Responses: make(map[string]*types.FetchResponse),
		Errors:    finalErrors,
	}
	for _, res := range processedResults {
		finalResponse.Responses[res.Key] = newFetchResponse(res.Result, res.FinalTrimmedContent)
	}

	zap.S().Infow("completed fetching multiple URLs",
		"total_urls_requested", len(urls),
		"successful_fetches", numSuccessful,
		"error_count", len(finalResponse.Errors),
		"final_total_content_length", totalUsed,
		"max_length_limit", maxLength)

	return finalResponse, nil
}
