package query

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/lysyi3m/content-hub/app/content"
	"github.com/lysyi3m/content-hub/app/database"
)

var ErrInvalidQuery = errors.New("invalid query")

type Reader interface {
	ListItems(ctx context.Context, filter database.ListFilter) ([]content.Item, error)
	GetItem(ctx context.Context, contentID int64) (*content.Item, error)
}

// Entry is an item as served to readers.
type Entry struct {
	content.Item
	Excerpt  string `json:"excerpt"`
	EmbedURL string `json:"embedUrl,omitempty"`
}

type Page struct {
	Items    []Entry `json:"items"`
	NextPage *int    `json:"nextPage"`
}

type Service struct {
	store    Reader
	pageSize int
}

func NewService(store Reader, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Service{store: store, pageSize: pageSize}
}

func (s *Service) PageSize() int {
	return s.pageSize
}

// FetchContent returns one page in canonical order. One extra row is read to
// decide whether a next page exists. The tag filter is applied to the page
// after it is read, so a filtered page may hold fewer than pageSize items.
func (s *Service) FetchContent(ctx context.Context, page int, contentType, tag string) (Page, error) {
	if page < 1 {
		return Page{}, fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidQuery, page)
	}
	if page > math.MaxInt/s.pageSize {
		return Page{}, fmt.Errorf("%w: page %d is out of range", ErrInvalidQuery, page)
	}

	filter := database.ListFilter{
		Limit:  s.pageSize + 1,
		Offset: (page - 1) * s.pageSize,
	}
	if contentType != "" && contentType != "all" {
		t, ok := content.ParseType(contentType)
		if !ok {
			return Page{}, fmt.Errorf("%w: unknown content type %q", ErrInvalidQuery, contentType)
		}
		filter.Type = t
	}

	items, err := s.store.ListItems(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("failed to list content: %w", err)
	}

	result := Page{Items: []Entry{}}
	if len(items) > s.pageSize {
		items = items[:s.pageSize]
		next := page + 1
		result.NextPage = &next
	}

	for _, item := range items {
		if tag != "" && !item.HasTag(tag) {
			continue
		}
		result.Items = append(result.Items, newEntry(item))
	}

	return result, nil
}

func (s *Service) GetContent(ctx context.Context, contentID int64) (Entry, error) {
	item, err := s.store.GetItem(ctx, contentID)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get content %d: %w", contentID, err)
	}
	if item == nil {
		return Entry{}, content.ErrNotFound
	}
	return newEntry(*item), nil
}

// Latest returns the newest items across every type, for the outbound feed.
func (s *Service) Latest(ctx context.Context, limit int) ([]Entry, error) {
	items, err := s.store.ListItems(ctx, database.ListFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list latest content: %w", err)
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, newEntry(item))
	}
	return entries, nil
}

func newEntry(item content.Item) Entry {
	if item.Tags == nil {
		item.Tags = []content.Tag{}
	}
	return Entry{
		Item:     item,
		Excerpt:  Excerpt(item.Description),
		EmbedURL: EmbedURL(item),
	}
}
