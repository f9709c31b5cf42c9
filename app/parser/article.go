package parser

import (
	"strings"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
	"github.com/mmcdole/gofeed"
)

var articleImageChain = []extractor[*gofeed.Item]{
	func(item *gofeed.Item) string {
		if enclosure := firstEnclosure(item); enclosure != nil {
			return enclosure.URL
		}
		return ""
	},
	func(item *gofeed.Item) string {
		return extensionAttr(item.Extensions, "media", "content", "url")
	},
	func(item *gofeed.Item) string {
		return extensionAttr(item.Extensions, "media", "thumbnail", "url")
	},
}

var articleBodyChain = []extractor[*gofeed.Item]{
	func(item *gofeed.Item) string { return strings.TrimSpace(item.Content) },
	func(item *gofeed.Item) string { return strings.TrimSpace(item.Description) },
}

var authorChain = []extractor[*gofeed.Item]{
	func(item *gofeed.Item) string {
		if item.Author != nil {
			return strings.TrimSpace(item.Author.Name)
		}
		return ""
	},
	func(item *gofeed.Item) string {
		for _, author := range item.Authors {
			if author != nil && strings.TrimSpace(author.Name) != "" {
				return strings.TrimSpace(author.Name)
			}
		}
		return ""
	},
	func(item *gofeed.Item) string {
		if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
			return strings.TrimSpace(item.DublinCoreExt.Creator[0])
		}
		return ""
	},
}

type ArticleParser struct {
	feedCollector
}

func NewArticleParser(fetcher Fetcher, urls []string, concurrency int) *ArticleParser {
	p := &ArticleParser{}
	p.feedCollector = feedCollector{
		kind:        content.TypeArticle,
		fetcher:     fetcher,
		urls:        urls,
		concurrency: concurrency,
		parse:       p.Parse,
	}
	return p
}

// Parse maps an article feed into items, dropping entries published at or
// before since.
func (p *ArticleParser) Parse(raw []byte, since *time.Time) ([]content.Item, error) {
	feed, err := parseDocument("article feed", raw)
	if err != nil {
		return nil, err
	}

	source := content.SourceTag(feed.Title, "Article")
	items := make([]content.Item, 0, len(feed.Items))

	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}

		item, ok := entryBase("article feed", entry, entry.Link)
		if !ok || beforeCutoff(item.PublishedAt, since) {
			continue
		}

		body := firstNonEmpty(entry, articleBodyChain...)
		status := content.ExtractionNotNeeded
		if strings.TrimSpace(entry.Content) == "" {
			status = content.ExtractionPending
		}

		item.Type = content.TypeArticle
		item.Description = body
		item.ImageURL = firstNonEmpty(entry, articleImageChain...)
		item.Tags = []content.Tag{source}
		item.Article = &content.Article{
			Content:          body,
			Author:           firstNonEmpty(entry, authorChain...),
			ExtractionStatus: status,
		}

		items = append(items, item)
	}

	return items, nil
}
