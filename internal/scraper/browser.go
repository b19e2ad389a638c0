package scraper

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
)

// Browser is the automation channel used for rendered pages.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	Maximize(ctx context.Context) error
	// ClickIfVisible clicks the first element matching selector and reports
	// false when no visible element matches.
	ClickIfVisible(ctx context.Context, selector string) (bool, error)
	OuterHTML(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	Close() error
}

type ChromeOptions struct {
	ExecPath  string
	Headless  bool
	UserAgent string
}

// ChromeBrowser drives a single Chrome tab through chromedp.
type ChromeBrowser struct {
	ctx      context.Context
	headless bool
	cancel   []context.CancelFunc
}

// NewChromeBrowser launches Chrome and opens one tab.
func NewChromeBrowser(ctx context.Context, opts ChromeOptions) (*ChromeBrowser, error) {
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(ua),
	)
	if p := strings.TrimSpace(opts.ExecPath); p != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(p))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	b := &ChromeBrowser{
		ctx:      browserCtx,
		headless: opts.Headless,
		cancel:   []context.CancelFunc{browserCancel, allocCancel},
	}
	if err := chromedp.Run(browserCtx); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return b, nil
}

// run executes actions on the tab, bounded by ctx's deadline and cancellation.
func (b *ChromeBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if dl, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(b.ctx, dl)
	} else {
		runCtx, cancel = context.WithCancel(b.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (b *ChromeBrowser) Navigate(ctx context.Context, url string) error {
	return b.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (b *ChromeBrowser) Maximize(ctx context.Context) error {
	if b.headless {
		return b.run(ctx, chromedp.EmulateViewport(1920, 1080))
	}
	return b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		windowID, _, err := cdpbrowser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return err
		}
		return cdpbrowser.SetWindowBounds(windowID, &cdpbrowser.Bounds{
			WindowState: cdpbrowser.WindowStateMaximized,
		}).Do(ctx)
	}))
}

func (b *ChromeBrowser) ClickIfVisible(ctx context.Context, selector string) (bool, error) {
	expr := fmt.Sprintf(`(function() {
		const el = document.querySelector(%s);
		if (!el || el.offsetParent === null) {
			return false;
		}
		el.click();
		return true;
	})()`, strconv.Quote(selector))

	var clicked bool
	if err := b.run(ctx, chromedp.Evaluate(expr, &clicked)); err != nil {
		return false, err
	}
	return clicked, nil
}

func (b *ChromeBrowser) OuterHTML(ctx context.Context) (string, error) {
	var html string
	if err := b.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (b *ChromeBrowser) Location(ctx context.Context) (string, error) {
	var loc string
	if err := b.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (b *ChromeBrowser) Close() error {
	if b == nil {
		return nil
	}
	for _, c := range b.cancel {
		c()
	}
	b.cancel = nil
	return nil
}

var _ Browser = (*ChromeBrowser)(nil)
