package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
)

var _ ContentRepository = (*ContentStore)(nil)

type ContentStore struct {
	db *DB
}

func NewContentStore(db *DB) *ContentStore {
	return &ContentStore{db: db}
}

// SaveItem upserts the item, its type extension and its tag associations in
// one transaction. Failures come back as *content.PersistenceError naming
// the step that failed.
func (r *ContentStore) SaveItem(ctx context.Context, item content.Item) (int64, error) {
	if err := item.Validate(); err != nil {
		return 0, &content.PersistenceError{Step: "validate", Link: item.Link, Err: err}
	}

	var contentID int64
	err := r.db.InTx(ctx, func(tx *sql.Tx) error {
		id, err := upsertContentItem(ctx, tx, item)
		if err != nil {
			return &content.PersistenceError{Step: "content_item", Link: item.Link, Err: err}
		}
		contentID = id

		if err := upsertExtension(ctx, tx, id, item); err != nil {
			return &content.PersistenceError{Step: string(item.Type), Link: item.Link, Err: err}
		}

		for _, tag := range content.DedupeTags(item.Tags) {
			tagID, err := findOrCreateTag(ctx, tx, tag)
			if err != nil {
				return &content.PersistenceError{Step: "tag", Link: item.Link, Err: err}
			}
			if err := attachTag(ctx, tx, id, tagID); err != nil {
				return &content.PersistenceError{Step: "tag_association", Link: item.Link, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		var persistErr *content.PersistenceError
		if !errors.As(err, &persistErr) {
			err = &content.PersistenceError{Step: "commit", Link: item.Link, Err: err}
		}
		return 0, err
	}

	return contentID, nil
}

// upsertContentItem keys on link. The conflict branch only fires when the
// stored type matches, so a type change returns no row.
func upsertContentItem(ctx context.Context, q Querier, item content.Item) (int64, error) {
	now := formatTime(time.Now())

	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO content_items (external_id, title, description, type, image_url, date, link, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (link) DO UPDATE SET
			external_id = excluded.external_id,
			title = excluded.title,
			description = excluded.description,
			image_url = excluded.image_url,
			date = excluded.date,
			updated_at = excluded.updated_at
		WHERE content_items.type = excluded.type
		RETURNING id
	`, item.ID, item.Title, item.Description, string(item.Type), nullString(item.ImageURL),
		formatTime(item.PublishedAt), item.Link, now, now).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, content.ErrTypeChanged
	}
	if err != nil {
		return 0, fmt.Errorf("failed to upsert content item: %w", err)
	}
	return id, nil
}

func upsertExtension(ctx context.Context, q Querier, contentID int64, item content.Item) error {
	var err error

	switch item.Type {
	case content.TypeArticle:
		article := item.Article
		if article == nil {
			article = &content.Article{Content: item.Description, ExtractionStatus: content.ExtractionNotNeeded}
		}
		// A successfully extracted body survives re-ingestion of the summary.
		_, err = q.ExecContext(ctx, `
			INSERT INTO articles (content_id, content, author, extraction_status)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (content_id) DO UPDATE SET
				author = excluded.author,
				content = CASE
					WHEN articles.extraction_status = 'success' AND excluded.extraction_status = 'pending' THEN articles.content
					ELSE excluded.content END,
				extraction_status = CASE
					WHEN articles.extraction_status IN ('success', 'failed') AND excluded.extraction_status = 'pending' THEN articles.extraction_status
					ELSE excluded.extraction_status END
		`, contentID, article.Content, nullString(article.Author), string(article.ExtractionStatus))

	case content.TypeVideo:
		video := item.Video
		if video == nil {
			video = &content.Video{VideoURL: item.Link, ThumbnailURL: item.ImageURL}
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO videos (content_id, video_url, thumbnail_url, duration)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (content_id) DO UPDATE SET
				video_url = excluded.video_url,
				thumbnail_url = excluded.thumbnail_url,
				duration = excluded.duration
		`, contentID, video.VideoURL, nullString(video.ThumbnailURL), nullInt(video.Duration))

	case content.TypePodcast:
		podcast := item.Podcast
		if podcast == nil {
			podcast = &content.Podcast{}
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO podcasts (content_id, audio_url, duration, episode_number, season_number)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (content_id) DO UPDATE SET
				audio_url = excluded.audio_url,
				duration = excluded.duration,
				episode_number = excluded.episode_number,
				season_number = excluded.season_number
		`, contentID, podcast.AudioURL, nullInt(podcast.Duration), nullInt(podcast.Episode), nullInt(podcast.Season))

	default:
		return fmt.Errorf("unknown content type %q", item.Type)
	}

	if err != nil {
		return fmt.Errorf("failed to upsert %s details: %w", item.Type, err)
	}
	return nil
}

func findOrCreateTag(ctx context.Context, q Querier, tag content.Tag) (int64, error) {
	name := content.NormalizeTagName(tag.Name)

	_, err := q.ExecContext(ctx, `
		INSERT INTO content_tags (name, type) VALUES (?, ?)
		ON CONFLICT (name, type) DO NOTHING
	`, name, string(tag.Type))
	if err != nil {
		return 0, fmt.Errorf("failed to create tag %s/%s: %w", tag.Type, name, err)
	}

	var id int64
	err = q.QueryRowContext(ctx, `SELECT id FROM content_tags WHERE name = ? AND type = ?`, name, string(tag.Type)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to find tag %s/%s: %w", tag.Type, name, err)
	}
	return id, nil
}

func attachTag(ctx context.Context, q Querier, contentID, tagID int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO content_item_tags (content_id, tag_id) VALUES (?, ?)
		ON CONFLICT (content_id, tag_id) DO NOTHING
	`, contentID, tagID)
	if err != nil {
		return fmt.Errorf("failed to attach tag: %w", err)
	}
	return nil
}

const selectItems = `
	SELECT ci.id, ci.external_id, ci.title, ci.description, ci.type, COALESCE(ci.image_url, ''), ci.date, ci.link,
	       a.content, a.author, a.extraction_status,
	       v.video_url, v.thumbnail_url, v.duration,
	       p.audio_url, p.duration, p.episode_number, p.season_number
	FROM content_items ci
	LEFT JOIN articles a ON a.content_id = ci.id
	LEFT JOIN videos v ON v.content_id = ci.id
	LEFT JOIN podcasts p ON p.content_id = ci.id`

func (r *ContentStore) ListItems(ctx context.Context, filter ListFilter) ([]content.Item, error) {
	if filter.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, selectItems+`
		WHERE (? = '' OR ci.type = ?)
		ORDER BY ci.date DESC, ci.link ASC
		LIMIT ? OFFSET ?
	`, string(filter.Type), string(filter.Type), filter.Limit, max(filter.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list content items: %w", err)
	}

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadTags(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ContentStore) GetItem(ctx context.Context, contentID int64) (*content.Item, error) {
	rows, err := r.db.QueryContext(ctx, selectItems+` WHERE ci.id = ?`, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get content item: %w", err)
	}

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	if err := r.loadTags(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func scanItems(rows *sql.Rows) ([]content.Item, error) {
	defer rows.Close()

	items := []content.Item{}
	for rows.Next() {
		var (
			item                           content.Item
			itemType, date                 string
			articleBody, author, status    sql.NullString
			videoURL, thumbnailURL         sql.NullString
			videoDuration, podcastDuration sql.NullInt64
			audioURL                       sql.NullString
			episode, season                sql.NullInt64
		)

		err := rows.Scan(
			&item.ContentID, &item.ID, &item.Title, &item.Description, &itemType, &item.ImageURL, &date, &item.Link,
			&articleBody, &author, &status,
			&videoURL, &thumbnailURL, &videoDuration,
			&audioURL, &podcastDuration, &episode, &season,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content row: %w", err)
		}

		item.Type = content.Type(itemType)
		if item.PublishedAt, err = parseTime(date); err != nil {
			return nil, err
		}

		switch item.Type {
		case content.TypeArticle:
			if status.Valid {
				item.Article = &content.Article{
					Content:          articleBody.String,
					Author:           author.String,
					ExtractionStatus: content.ExtractionStatus(status.String),
				}
			}
		case content.TypeVideo:
			if videoURL.Valid {
				item.Video = &content.Video{
					VideoURL:     videoURL.String,
					ThumbnailURL: thumbnailURL.String,
					Duration:     intPtr(videoDuration),
				}
			}
		case content.TypePodcast:
			if audioURL.Valid {
				item.Podcast = &content.Podcast{
					AudioURL: audioURL.String,
					Duration: intPtr(podcastDuration),
					Episode:  intPtr(episode),
					Season:   intPtr(season),
				}
			}
		}

		item.Tags = []content.Tag{}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating content rows: %w", err)
	}
	return items, nil
}

func (r *ContentStore) loadTags(ctx context.Context, items []content.Item) error {
	if len(items) == 0 {
		return nil
	}

	index := make(map[int64]int, len(items))
	args := make([]any, 0, len(items))
	for i, item := range items {
		index[item.ContentID] = i
		args = append(args, item.ContentID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(args)), ",")
	rows, err := r.db.QueryContext(ctx, `
		SELECT cit.content_id, t.id, t.name, t.type
		FROM content_item_tags cit
		JOIN content_tags t ON t.id = cit.tag_id
		WHERE cit.content_id IN (`+placeholders+`)
		ORDER BY t.type, t.name
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			contentID int64
			tag       content.Tag
			tagType   string
		)
		if err := rows.Scan(&contentID, &tag.ID, &tag.Name, &tagType); err != nil {
			return fmt.Errorf("failed to scan tag row: %w", err)
		}
		tag.Type = content.TagType(tagType)

		if i, ok := index[contentID]; ok {
			items[i].Tags = append(items[i].Tags, tag)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating tag rows: %w", err)
	}
	return nil
}

func (r *ContentStore) CountByType(ctx context.Context) (map[content.Type]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM content_items GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("failed to count content items: %w", err)
	}
	defer rows.Close()

	counts := make(map[content.Type]int, len(content.Types))
	for _, t := range content.Types {
		counts[t] = 0
	}

	for rows.Next() {
		var (
			itemType string
			count    int
		)
		if err := rows.Scan(&itemType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[content.Type(itemType)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating count rows: %w", err)
	}
	return counts, nil
}

func (r *ContentStore) CountTags(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_tags`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tags: %w", err)
	}
	return count, nil
}

func (r *ContentStore) GetArticlesForExtraction(ctx context.Context, limit int) ([]ItemForExtraction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ci.id, ci.link
		FROM articles a
		JOIN content_items ci ON ci.id = a.content_id
		WHERE a.extraction_status = 'pending'
		ORDER BY ci.date DESC, ci.link ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles for extraction: %w", err)
	}
	defer rows.Close()

	var items []ItemForExtraction
	for rows.Next() {
		var item ItemForExtraction
		if err := rows.Scan(&item.ContentID, &item.Link); err != nil {
			return nil, fmt.Errorf("failed to scan extraction row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extraction rows: %w", err)
	}
	return items, nil
}

func (r *ContentStore) UpdateExtractedContent(ctx context.Context, contentID int64, body string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET content = ?, extraction_status = 'success', extracted_at = ?, extraction_error = NULL
		WHERE content_id = ?
	`, body, formatTime(time.Now()), contentID)
	if err != nil {
		return fmt.Errorf("failed to update extracted content: %w", err)
	}
	return nil
}

func (r *ContentStore) UpdateExtractionStatus(ctx context.Context, contentID int64, status content.ExtractionStatus, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE articles
		SET extraction_status = ?, extracted_at = ?, extraction_error = ?
		WHERE content_id = ?
	`, string(status), formatTime(time.Now()), nullString(errMsg), contentID)
	if err != nil {
		return fmt.Errorf("failed to update extraction status: %w", err)
	}
	return nil
}
