package scraper

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 60 * time.Second

type HTTPFetcherConfig struct {
	Verify    bool
	Timeout   time.Duration
	UserAgent string
	Retry     RetryPolicy
}

// HTTPFetcher performs plain GET requests for listing pages.
type HTTPFetcher struct {
	cfg       HTTPFetcherConfig
	retrier   *Retrier
	logger    *zap.Logger
	transport http.RoundTripper
}

func NewHTTPFetcher(cfg HTTPFetcherConfig, logger *zap.Logger) *HTTPFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	return &HTTPFetcher{
		cfg:     cfg,
		retrier: NewRetrier(cfg.Retry, logger),
		logger:  logger,
		transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.Verify},
		},
	}
}

// Fetch returns the body of pageURL whatever its HTTP status.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	var body string
	err := f.retrier.Do(ctx, pageURL, func(ctx context.Context) error {
		b, err := f.fetchOnce(ctx, pageURL)
		if err != nil {
			return err
		}
		body = b
		return nil
	}, ClassifyTransport)
	if err != nil {
		return "", err
	}
	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	c := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	c.WithTransport(f.transport)
	c.SetRequestTimeout(f.cfg.Timeout)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range httpHeaders(f.cfg.UserAgent) {
			r.Headers.Set(k, v)
		}
	})

	var (
		body      []byte
		status    int
		responded bool
	)
	c.OnResponse(func(r *colly.Response) {
		responded = true
		status = r.StatusCode
		body = r.Body
	})

	var reqErr error
	c.OnError(func(r *colly.Response, err error) {
		reqErr = err
	})

	if err := c.Visit(pageURL); err != nil {
		return "", err
	}
	c.Wait()
	if reqErr != nil {
		return "", reqErr
	}
	if !responded {
		return "", errors.New("no response received")
	}
	if status >= http.StatusBadRequest {
		f.logger.Debug("non-success status", zap.String("url", pageURL), zap.Int("status", status))
	}
	return string(body), nil
}
