package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
	"github.com/mmcdole/gofeed"
)

// podcastEntry pairs an item with its channel, since the image chain falls
// back to channel-level artwork.
type podcastEntry struct {
	feed *gofeed.Feed
	item *gofeed.Item
}

// podcastLinkChain resolves the natural key. Some hosts publish episodes
// with only a guid and an enclosure; the enclosure URL is unique per episode.
var podcastLinkChain = []extractor[podcastEntry]{
	func(e podcastEntry) string { return strings.TrimSpace(e.item.Link) },
	func(e podcastEntry) string {
		if enclosure := firstEnclosure(e.item); enclosure != nil {
			return strings.TrimSpace(enclosure.URL)
		}
		return ""
	},
}

var podcastImageChain = []extractor[podcastEntry]{
	func(e podcastEntry) string {
		if e.item.ITunesExt != nil {
			return e.item.ITunesExt.Image
		}
		return ""
	},
	func(e podcastEntry) string {
		if e.item.Image != nil {
			return e.item.Image.URL
		}
		return ""
	},
	func(e podcastEntry) string {
		if e.feed.ITunesExt != nil {
			return e.feed.ITunesExt.Image
		}
		return ""
	},
	func(e podcastEntry) string {
		if e.feed.Image != nil {
			return e.feed.Image.URL
		}
		return ""
	},
}

var podcastDescriptionChain = []extractor[podcastEntry]{
	func(e podcastEntry) string { return strings.TrimSpace(e.item.Description) },
	func(e podcastEntry) string { return strings.TrimSpace(e.item.Content) },
	func(e podcastEntry) string {
		if e.item.ITunesExt != nil {
			return strings.TrimSpace(e.item.ITunesExt.Summary)
		}
		return ""
	},
}

type PodcastParser struct {
	feedCollector
}

func NewPodcastParser(fetcher Fetcher, urls []string, concurrency int) *PodcastParser {
	p := &PodcastParser{}
	p.feedCollector = feedCollector{
		kind:        content.TypePodcast,
		fetcher:     fetcher,
		urls:        urls,
		concurrency: concurrency,
		parse:       p.Parse,
	}
	return p
}

// Parse maps a podcast feed into items, dropping entries published at or
// before since.
func (p *PodcastParser) Parse(raw []byte, since *time.Time) ([]content.Item, error) {
	feed, err := parseDocument("podcast feed", raw)
	if err != nil {
		return nil, err
	}

	source := content.SourceTag(feed.Title, "Podcast")
	items := make([]content.Item, 0, len(feed.Items))

	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}

		pe := podcastEntry{feed: feed, item: entry}

		item, ok := entryBase("podcast feed", entry, firstNonEmpty(pe, podcastLinkChain...))
		if !ok || beforeCutoff(item.PublishedAt, since) {
			continue
		}

		item.Type = content.TypePodcast
		item.Description = firstNonEmpty(pe, podcastDescriptionChain...)
		item.ImageURL = firstNonEmpty(pe, podcastImageChain...)
		item.Tags = []content.Tag{source}
		item.Podcast = podcastDetails(entry)

		items = append(items, item)
	}

	return items, nil
}

func podcastDetails(item *gofeed.Item) *content.Podcast {
	details := &content.Podcast{}

	if enclosure := firstEnclosure(item); enclosure != nil {
		details.AudioURL = enclosure.URL
	}

	if item.ITunesExt == nil {
		return details
	}

	if seconds, err := ParseClockDuration(item.ITunesExt.Duration); err == nil {
		details.Duration = content.Int(seconds)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(item.ITunesExt.Episode)); err == nil {
		details.Episode = content.Int(n)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(item.ITunesExt.Season)); err == nil {
		details.Season = content.Int(n)
	}

	return details
}

// ParseClockDuration converts an itunes:duration value (seconds, MM:SS or
// HH:MM:SS) into seconds.
func ParseClockDuration(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty duration")
	}

	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration %q", value)
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", value)
		}
		total = total*60 + n
	}
	return total, nil
}
