// Package fetch downloads HTML pages with a browser-like identity,
// transparently following client-side meta-refresh redirects.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/logging"
)

// userAgent identifies the fetcher as a regular browser; some sites
// refuse requests without one.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// maxRedirects bounds the meta-refresh chain followed per fetch.
const maxRedirects = 5

// refreshURLPattern extracts the url= portion of a meta-refresh
// content attribute.
var refreshURLPattern = regexp.MustCompile(`(?i)url\s*=\s*['"]?([^'"\s]+)`)

// FetchError indicates that a page download failed or the redirect
// bound was exceeded. Materialization of the affected filter is
// aborted; the message stays unread.
type FetchError struct {
	URL     string
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetching %s: %s: %v", e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("fetching %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err (or any error in its chain) is a
// FetchError.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}

// Fetcher downloads pages and page resources over a shared HTTP client
// with a fixed timeout.
type Fetcher struct {
	client *http.Client
	logger *logging.Logger
}

// New creates a Fetcher.
func New(logger *logging.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Get downloads the page at rawURL, following up to 5 meta-refresh
// redirects. It returns the final URL and the page body.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (string, string, error) {
	current := rawURL

	for redirects := 0; redirects < maxRedirects; redirects++ {
		page, err := f.getPage(ctx, current)
		if err != nil {
			return "", "", err
		}

		target := refreshTarget(page)
		if target == "" {
			return current, page, nil
		}

		resolved, err := Resolve(current, target)
		if err != nil {
			return "", "", &FetchError{
				URL:     current,
				Message: fmt.Sprintf("bad refresh target %q", target),
				Err:     err,
			}
		}

		f.logger.Debugf("following meta refresh %s -> %s", current, resolved)
		current = resolved
	}

	return "", "", &FetchError{
		URL:     rawURL,
		Message: fmt.Sprintf("more than %d meta-refresh redirects", maxRedirects),
	}
}

// Download performs a single GET of rawURL and returns the body bytes.
// Used for page resources such as images.
func (f *Fetcher) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Message: "building request", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Message: "executing request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			URL:     rawURL,
			Message: fmt.Sprintf("unexpected status %s", resp.Status),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Message: "reading response body", Err: err}
	}

	return data, nil
}

// getPage fetches one page as text.
func (f *Fetcher) getPage(ctx context.Context, rawURL string) (string, error) {
	data, err := f.Download(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Resolve resolves a possibly-relative target URL against the page it
// was found on.
func Resolve(base, target string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base URL %q: %w", base, err)
	}

	targetURL, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return "", fmt.Errorf("parsing URL %q: %w", target, err)
	}

	return baseURL.ResolveReference(targetURL).String(), nil
}

// refreshTarget returns the destination of a meta-refresh tag in page,
// or "" when the page has none.
func refreshTarget(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}

	var content string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if content != "" {
			return
		}

		if n.Type == html.ElementNode && n.Data == "meta" {
			var equiv, c string
			for _, attr := range n.Attr {
				switch strings.ToLower(attr.Key) {
				case "http-equiv":
					equiv = strings.ToLower(attr.Val)
				case "content":
					c = attr.Val
				}
			}
			if equiv == "refresh" && c != "" {
				content = c
				return
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if content == "" {
		return ""
	}

	match := refreshURLPattern.FindStringSubmatch(content)
	if match == nil {
		return ""
	}
	return match[1]
}
