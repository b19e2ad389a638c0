package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func httpHeaders(userAgent string) map[string]string {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept-Language": "sq-AL,sq;q=0.9,en-US;q=0.8,en;q=0.7",
	}
}

// resolveURL makes href absolute against base. An unparsable href is returned
// trimmed but otherwise untouched.
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil || !b.IsAbs() {
		return href
	}
	return b.ResolveReference(ref).String()
}

// PageURLTemplate derives the search pagination template from the site base.
func PageURLTemplate(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/search/advanced/filter?page=%d"
}
