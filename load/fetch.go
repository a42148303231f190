/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

package load

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"bennypowers.dev/parselib/internal/source"
	"bennypowers.dev/parselib/internal/version"
)

const (
	// DefaultTimeout is the maximum time to wait for a grammar download.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxSize is the largest grammar file accepted from the network (1 MB).
	DefaultMaxSize int64 = 1024 * 1024

	// GrammarExt is the file extension of downloadable grammars.
	GrammarExt = ".grm"
)

// Errors reported by HTTPFetcher before or after a download.
var (
	// ErrNotGrammarFile indicates a URL that does not name a .grm file.
	ErrNotGrammarFile = errors.New("not a grammar file")

	// ErrUnexpectedContent indicates a response that cannot be grammar text,
	// such as an HTML page or binary data.
	ErrUnexpectedContent = errors.New("unexpected grammar content")
)

// Fetcher downloads grammar source from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher downloads .grm files over HTTP. Responses are limited in
// size, must be plain text and must decode as UTF-8 or BOM-marked UTF-16.
type HTTPFetcher struct {
	maxSize int64
	client  *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with the given maximum response size.
func NewHTTPFetcher(maxSize int64) *HTTPFetcher {
	return &HTTPFetcher{
		maxSize: maxSize,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

// Fetch downloads the grammar at rawURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}
	if path.Ext(u.Path) != GrammarExt {
		return nil, fmt.Errorf("%w: %s", ErrNotGrammarFile, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", "parselib/"+version.Get())
	req.Header.Set("Accept", "text/plain, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout fetching %s: %w", rawURL, err)
		}
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: %s", rawURL, resp.Status)
	}
	if err := checkContentType(resp.Header.Get("Content-Type")); err != nil {
		return nil, fmt.Errorf("%s: %w", rawURL, err)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", rawURL, err)
	}
	if int64(len(content)) > f.maxSize {
		return nil, fmt.Errorf("response from %s exceeds maximum size of %d bytes", rawURL, f.maxSize)
	}

	text, err := source.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnexpectedContent, rawURL, err)
	}
	if strings.ContainsRune(text, 0) {
		return nil, fmt.Errorf("%w: %s contains NUL bytes", ErrUnexpectedContent, rawURL)
	}
	return content, nil
}

// checkContentType accepts plain text and the generic types CDNs use for
// unknown extensions. HTML is rejected: it is what a CDN serves for
// directory listings and error pages.
func checkContentType(header string) error {
	if header == "" {
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return fmt.Errorf("%w: content type %q", ErrUnexpectedContent, header)
	}
	switch {
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
	case strings.HasPrefix(mediaType, "text/"), mediaType == "application/octet-stream":
		return nil
	}
	return fmt.Errorf("%w: content type %s", ErrUnexpectedContent, mediaType)
}
