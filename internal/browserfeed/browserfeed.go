// Package browserfeed collects ambient context straight from a running
// Chrome over the DevTools protocol.
//
// This is an optional fallback for hosts where the extension cannot supply
// its own feed (e.g. kiosk setups started with --remote-debugging-port).
// The output is the same raw Feed shape the extension would send; the
// ambient aggregator applies its own filtering regardless of the source.
package browserfeed

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/fieldsense/fieldsense/internal/ambient"
	"github.com/fieldsense/fieldsense/internal/devlog"
)

const defaultTimeout = 5 * time.Second

// headingsJS pulls the page's top headings in document order.
const headingsJS = `Array.from(document.querySelectorAll("h1, h2, h3")).slice(0, 10).map(h => h.innerText.trim()).filter(t => t.length > 0)`

// Collector attaches to a running Chrome instance.
type Collector struct {
	devtoolsURL string
	timeout     time.Duration
}

// New creates a collector for the DevTools endpoint, e.g.
// "http://127.0.0.1:9222".
func New(devtoolsURL string) *Collector {
	return &Collector{devtoolsURL: devtoolsURL, timeout: defaultTimeout}
}

// Collect enumerates open tabs and extracts the active page's title and
// headings. Navigation history is not reachable over DevTools; the history
// portion of the feed stays empty on this path.
func (c *Collector) Collect(ctx context.Context) (ambient.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, c.devtoolsURL)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	targets, err := chromedp.Targets(browserCtx)
	if err != nil {
		return ambient.Feed{}, err
	}

	var feed ambient.Feed
	pages := pageTargets(targets)
	for i, t := range pages {
		feed.OtherTabs = append(feed.OtherTabs, ambient.TabInfo{
			Title:  t.Title,
			URL:    t.URL,
			Active: i == 0, // DevTools lists the frontmost page first
		})
	}

	if len(pages) > 0 {
		feed.CurrentPage = c.describePage(browserCtx, pages[0])
	}
	return feed, nil
}

// describePage attaches to one tab and reads its title and headings. Errors
// degrade to the target's own metadata; a broken tab should not sink the
// whole feed.
func (c *Collector) describePage(browserCtx context.Context, t *target.Info) ambient.PageInfo {
	page := ambient.PageInfo{Title: t.Title, URL: t.URL}

	tabCtx, cancel := chromedp.NewContext(browserCtx, chromedp.WithTargetID(t.TargetID))
	defer cancel()

	var headings []string
	if err := chromedp.Run(tabCtx,
		chromedp.Evaluate(headingsJS, &headings),
	); err != nil {
		devlog.Printf("[browserfeed] headings for %s: %v", t.URL, err)
		return page
	}
	page.Headings = headings
	return page
}

// pageTargets filters the target list down to real web pages.
func pageTargets(targets []*target.Info) []*target.Info {
	var pages []*target.Info
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		// DevTools' own UI and extension background pages are noise.
		if strings.HasPrefix(t.URL, "devtools://") || strings.HasPrefix(t.URL, "chrome-extension://") {
			continue
		}
		pages = append(pages, t)
	}
	return pages
}
