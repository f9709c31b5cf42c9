package parser

import (
	"bytes"
	"cmp"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"golang.org/x/sync/errgroup"
)

// parseDocument decodes an RSS or Atom document. gofeed.Parser keeps state
// between calls, so every document gets a fresh one.
func parseDocument(source string, raw []byte) (*gofeed.Feed, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &content.ParseError{Source: source, Reason: "malformed document", Err: err}
	}
	return feed, nil
}

// entryBase fills the fields every feed entry shares and reports whether
// the entry is usable at all. link is the natural key the caller resolved
// for the entry. Unusable entries are logged and skipped.
func entryBase(source string, item *gofeed.Item, link string) (content.Item, bool) {
	base := content.Item{
		ID:    cmp.Or(item.GUID, link),
		Title: item.Title,
		Link:  link,
	}

	if link == "" {
		slog.Warn("Skipping entry", "error", &content.ParseError{Source: source, Reason: "missing link", Link: item.Title})
		return base, false
	}

	published := cmp.Or(item.PublishedParsed, item.UpdatedParsed)
	if published == nil {
		slog.Warn("Skipping entry", "error", &content.ParseError{Source: source, Link: link, Reason: "missing or unparsable publication date"})
		return base, false
	}
	base.PublishedAt = published.UTC().Truncate(time.Second)

	return base, true
}

// extensionAttr returns an attribute of the first matching extension element,
// looking at top level and inside media:group.
func extensionAttr(exts ext.Extensions, namespace, name, attr string) string {
	elements, ok := exts[namespace]
	if !ok {
		return ""
	}

	for _, e := range elements[name] {
		if value := e.Attrs[attr]; value != "" {
			return value
		}
	}

	for _, group := range elements["group"] {
		for _, e := range group.Children[name] {
			if value := e.Attrs[attr]; value != "" {
				return value
			}
		}
		for _, c := range group.Children["content"] {
			for _, e := range c.Children[name] {
				if value := e.Attrs[attr]; value != "" {
					return value
				}
			}
		}
	}

	return ""
}

func firstEnclosure(item *gofeed.Item) *gofeed.Enclosure {
	for _, enclosure := range item.Enclosures {
		if enclosure != nil && enclosure.URL != "" {
			return enclosure
		}
	}
	return nil
}

// feedCollector fans out over a list of feed URLs with bounded concurrency.
// A failing feed is logged and counted; it never cancels its siblings.
type feedCollector struct {
	kind        content.Type
	fetcher     Fetcher
	urls        []string
	concurrency int
	parse       func(raw []byte, since *time.Time) ([]content.Item, error)
}

func (c *feedCollector) Kind() content.Type {
	return c.kind
}

func (c *feedCollector) Collect(ctx context.Context, since *time.Time) Report {
	report := Report{Kind: c.kind, Attempted: len(c.urls)}
	results := make([][]content.Item, len(c.urls))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.concurrency, 1))

	for i, url := range c.urls {
		g.Go(func() error {
			items, err := c.collectOne(gctx, url, since)
			if err != nil {
				slog.Error("Source failed", "type", string(c.kind), "url", url, "error", err)

				mu.Lock()
				report.Failed++
				report.Errors = append(report.Errors, err)
				mu.Unlock()
				return nil
			}

			slog.Debug("Source collected", "type", string(c.kind), "url", url, "items", len(items))
			results[i] = items
			return nil
		})
	}
	g.Wait()

	for _, items := range results {
		report.Items = append(report.Items, items...)
	}
	return report
}

func (c *feedCollector) collectOne(ctx context.Context, url string, since *time.Time) ([]content.Item, error) {
	raw, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	return c.parse(raw, since)
}
