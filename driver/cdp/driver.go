// Package cdp implements pagestate.PageDriver on top of chromedp, driving a
// real Chrome/Chromium tab over the DevTools protocol.
package cdp

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// Driver drives one browser tab. The tab context passed to New owns the
// browser lifecycle; per-call contexts only bound individual operations.
type Driver struct {
	tab        context.Context
	snapshotJS string
}

// Option configures a Driver.
type Option func(*Driver)

// WithSnapshotScript sets a JavaScript expression evaluated by Snapshot. It
// must produce an object; its fields are merged over the built-in url/title
// fields, so site-specific signals (logged-in flags, view markers) become
// visible to expression predicates.
func WithSnapshotScript(js string) Option {
	return func(d *Driver) {
		d.snapshotJS = js
	}
}

// New wraps a chromedp tab context. The caller remains responsible for
// creating and cancelling the context (chromedp.NewContext and friends).
func New(tab context.Context, opts ...Option) *Driver {
	d := &Driver{tab: tab}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// run executes actions against the tab while honouring the per-call ctx.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(d.tab, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *Driver) Click(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (d *Driver) SendKeys(ctx context.Context, selector, value string) error {
	return d.run(ctx, chromedp.SendKeys(selector, value, chromedp.ByQuery))
}

func (d *Driver) Text(ctx context.Context, selector string) (string, error) {
	var out string
	if err := d.run(ctx, chromedp.Text(selector, &out, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return out, nil
}

func (d *Driver) Exists(ctx context.Context, selector string) (bool, error) {
	var out bool
	expr := fmt.Sprintf("document.querySelector(%q) !== null", selector)
	if err := d.run(ctx, chromedp.Evaluate(expr, &out)); err != nil {
		return false, err
	}
	return out, nil
}

func (d *Driver) Location(ctx context.Context) (string, error) {
	var out string
	if err := d.run(ctx, chromedp.Location(&out)); err != nil {
		return "", err
	}
	return out, nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	var out string
	if err := d.run(ctx, chromedp.Title(&out)); err != nil {
		return "", err
	}
	return out, nil
}

// Snapshot captures the page fields exposed to expression predicates. The
// built-in fields are url, title, and readyState; a configured snapshot
// script can add site-specific ones.
func (d *Driver) Snapshot(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	expr := snapshotExpr(d.snapshotJS)
	if err := d.run(ctx, chromedp.Evaluate(expr, &out)); err != nil {
		return nil, err
	}
	return out, nil
}

func snapshotExpr(extra string) string {
	base := `{url: window.location.href, title: document.title, readyState: document.readyState}`
	if extra == "" {
		return fmt.Sprintf("(%s)", base)
	}
	return fmt.Sprintf("Object.assign(%s, (%s))", base, extra)
}
