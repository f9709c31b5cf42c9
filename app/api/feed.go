package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
	"github.com/lysyi3m/content-hub/app/query"
)

// feedSizeMultiplier sets how many pages of content the outbound feed carries.
const feedSizeMultiplier = 5

func (h *Handler) GetFeedRSS(c *gin.Context) {
	h.serveFeed(c, "application/rss+xml; charset=utf-8", (*feeds.Feed).ToRss)
}

func (h *Handler) GetFeedAtom(c *gin.Context) {
	h.serveFeed(c, "application/atom+xml; charset=utf-8", (*feeds.Feed).ToAtom)
}

func (h *Handler) GetFeedJSON(c *gin.Context) {
	h.serveFeed(c, "application/feed+json; charset=utf-8", (*feeds.Feed).ToJSON)
}

func (h *Handler) serveFeed(c *gin.Context, contentType string, render func(*feeds.Feed) (string, error)) {
	entries, err := h.queries.Latest(c.Request.Context(), h.queries.PageSize()*feedSizeMultiplier)
	if err != nil {
		slog.Error("Database error", "operation", "latest_content", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	body, err := render(h.buildFeed(entries))
	if err != nil {
		slog.Error("Feed generation error", "path", c.Request.URL.Path, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=300")
	c.Header("X-Feed-Items", strconv.Itoa(len(entries)))
	c.String(http.StatusOK, body)
}

func (h *Handler) buildFeed(entries []query.Entry) *feeds.Feed {
	items := make([]*feeds.Item, 0, len(entries))

	updated := time.Time{}
	for _, entry := range entries {
		item := &feeds.Item{
			Id:          entry.Link,
			Title:       entry.Title,
			Link:        &feeds.Link{Href: entry.Link},
			Description: entry.Excerpt,
			Created:     entry.PublishedAt,
		}

		if entry.Article != nil {
			item.Content = entry.Article.Content
			if entry.Article.Author != "" {
				item.Author = &feeds.Author{Name: entry.Article.Author}
			}
		}

		switch {
		case entry.Podcast != nil && entry.Podcast.AudioURL != "":
			item.Enclosure = &feeds.Enclosure{Url: entry.Podcast.AudioURL, Type: "audio/mpeg", Length: "0"}
		case entry.ImageURL != "":
			item.Enclosure = &feeds.Enclosure{Url: entry.ImageURL, Type: imageType(entry.ImageURL), Length: "0"}
		}

		if entry.PublishedAt.After(updated) {
			updated = entry.PublishedAt
		}
		items = append(items, item)
	}

	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	return &feeds.Feed{
		Title:       h.feedInfo.Title,
		Link:        &feeds.Link{Href: h.feedInfo.BaseURL},
		Description: h.feedInfo.Description,
		Author:      &feeds.Author{Name: h.feedInfo.Title},
		Created:     updated,
		Updated:     updated,
		Items:       items,
	}
}

func imageType(url string) string {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, ".png"):
		return "image/png"
	case strings.Contains(lower, ".webp"):
		return "image/webp"
	case strings.Contains(lower, ".gif"):
		return "image/gif"
	}
	return "image/jpeg"
}
