package content

import (
	"fmt"
	"time"
)

type Type string

const (
	TypeArticle Type = "article"
	TypeVideo   Type = "video"
	TypePodcast Type = "podcast"
)

// Types lists every content type in a stable order.
var Types = []Type{TypeArticle, TypeVideo, TypePodcast}

// ParseType accepts a stored or user-supplied type name.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case TypeArticle, TypeVideo, TypePodcast:
		return Type(s), true
	}
	return "", false
}

type TagType string

const (
	TagTypeParticipant TagType = "participant"
	TagTypeTopic       TagType = "topic"
	TagTypeSource      TagType = "source"
	TagTypeAuthor      TagType = "author"
)

func ParseTagType(s string) (TagType, bool) {
	switch TagType(s) {
	case TagTypeParticipant, TagTypeTopic, TagTypeSource, TagTypeAuthor:
		return TagType(s), true
	}
	return "", false
}

type Tag struct {
	ID   int64   `json:"id,omitempty"`
	Name string  `json:"name"`
	Type TagType `json:"type"`
}

type ExtractionStatus string

const (
	ExtractionPending   ExtractionStatus = "pending"
	ExtractionNotNeeded ExtractionStatus = "not_needed"
	ExtractionSuccess   ExtractionStatus = "success"
	ExtractionFailed    ExtractionStatus = "failed"
)

type Article struct {
	Content          string           `json:"content"`
	Author           string           `json:"author,omitempty"`
	ExtractionStatus ExtractionStatus `json:"extractionStatus"`
}

type Video struct {
	VideoURL     string `json:"videoUrl"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Duration     *int   `json:"duration,omitempty"` // seconds
}

type Podcast struct {
	AudioURL string `json:"audioUrl"`
	Duration *int   `json:"duration,omitempty"` // seconds
	Episode  *int   `json:"episodeNumber,omitempty"`
	Season   *int   `json:"seasonNumber,omitempty"`
}

// Item is the unified record every source is mapped into. Link is the
// natural key; ContentID is the row id once persisted.
type Item struct {
	ContentID   int64     `json:"contentId,omitempty"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        Type      `json:"type"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PublishedAt time.Time `json:"date"`
	Link        string    `json:"link"`
	Tags        []Tag     `json:"tags"`

	Article *Article `json:"article,omitempty"`
	Video   *Video   `json:"video,omitempty"`
	Podcast *Podcast `json:"podcast,omitempty"`
}

// Validate checks the invariants a record must hold before it is persisted.
func (i Item) Validate() error {
	if i.Link == "" {
		return fmt.Errorf("item %q has no link", i.Title)
	}
	if i.PublishedAt.IsZero() {
		return fmt.Errorf("item %s has no publication date", i.Link)
	}

	extensions := 0
	if i.Article != nil {
		extensions++
	}
	if i.Video != nil {
		extensions++
	}
	if i.Podcast != nil {
		extensions++
	}
	if extensions > 1 {
		return fmt.Errorf("item %s carries %d type extensions", i.Link, extensions)
	}

	switch i.Type {
	case TypeArticle:
		if extensions == 1 && i.Article == nil {
			return fmt.Errorf("article %s carries a foreign extension", i.Link)
		}
	case TypeVideo:
		if extensions == 1 && i.Video == nil {
			return fmt.Errorf("video %s carries a foreign extension", i.Link)
		}
	case TypePodcast:
		if extensions == 1 && i.Podcast == nil {
			return fmt.Errorf("podcast %s carries a foreign extension", i.Link)
		}
	default:
		return fmt.Errorf("item %s has unknown type %q", i.Link, i.Type)
	}

	return nil
}

// Compare orders items newest first, breaking ties by link so pagination
// stays deterministic. Suitable for slices.SortFunc.
func Compare(a, b Item) int {
	if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
		return c
	}
	switch {
	case a.Link < b.Link:
		return -1
	case a.Link > b.Link:
		return 1
	}
	return 0
}

// HasTag reports whether the item carries a tag with the given normalized name.
func (i Item) HasTag(name string) bool {
	name = NormalizeTagName(name)
	for _, tag := range i.Tags {
		if tag.Name == name {
			return true
		}
	}
	return false
}

// Int returns a pointer to v, for the optional numeric fields.
func Int(v int) *int {
	return &v
}
