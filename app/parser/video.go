package parser

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	videoDetailsBatch = 50
	watchURL          = "https://www.youtube.com/watch?v="
)

type VideoOptions struct {
	PageSize    int
	MaxPages    int
	Concurrency int
}

// VideoParser walks each channel's uploads playlist and resolves video
// details in batches.
type VideoParser struct {
	service   *youtube.Service
	channels  []string
	opts      VideoOptions
	configErr error
}

// NewVideoParser builds the video collector. A missing API key is not an
// error here: the collector reports a ConfigurationError on every run and
// contributes nothing, leaving the other collectors unaffected.
func NewVideoParser(ctx context.Context, apiKey string, channels []string, opts VideoOptions, clientOpts ...option.ClientOption) (*VideoParser, error) {
	p := &VideoParser{
		channels: channels,
		opts:     opts,
	}
	if p.opts.PageSize < 1 || p.opts.PageSize > 50 {
		p.opts.PageSize = 10
	}
	if p.opts.MaxPages < 1 {
		p.opts.MaxPages = 1
	}

	if apiKey == "" {
		p.configErr = &content.ConfigurationError{Key: "youtube-api-key", Reason: "not set, video sources are skipped"}
		return p, nil
	}

	service, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, clientOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube client: %w", err)
	}
	p.service = service

	return p, nil
}

func (p *VideoParser) Kind() content.Type {
	return content.TypeVideo
}

func (p *VideoParser) Collect(ctx context.Context, since *time.Time) Report {
	report := Report{Kind: content.TypeVideo}
	if len(p.channels) == 0 {
		return report
	}

	if p.configErr != nil {
		slog.Warn("Video collector disabled", "error", p.configErr)
		report.Errors = append(report.Errors, p.configErr)
		return report
	}

	report.Attempted = len(p.channels)
	results := make([][]content.Item, len(p.channels))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.opts.Concurrency, 1))

	for i, channelID := range p.channels {
		g.Go(func() error {
			items, err := p.collectChannel(gctx, channelID, since)
			if err != nil {
				slog.Error("Source failed", "type", string(content.TypeVideo), "channel", channelID, "error", err)

				mu.Lock()
				report.Failed++
				report.Errors = append(report.Errors, err)
				mu.Unlock()
				return nil
			}

			slog.Debug("Source collected", "type", string(content.TypeVideo), "channel", channelID, "items", len(items))
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

type playlistEntry struct {
	videoID     string
	publishedAt time.Time
	snippet     *youtube.PlaylistItemSnippet
}

func (p *VideoParser) collectChannel(ctx context.Context, channelID string, since *time.Time) ([]content.Item, error) {
	channelResp, err := p.service.Channels.List([]string{"contentDetails", "snippet"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return nil, apiError("channels", channelID, err)
	}

	if len(channelResp.Items) == 0 || channelResp.Items[0].ContentDetails == nil ||
		channelResp.Items[0].ContentDetails.RelatedPlaylists == nil ||
		channelResp.Items[0].ContentDetails.RelatedPlaylists.Uploads == "" {
		return nil, &content.ParseError{Source: "channel " + channelID, Reason: "uploads playlist not found"}
	}

	channel := channelResp.Items[0]
	channelTitle := ""
	if channel.Snippet != nil {
		channelTitle = channel.Snippet.Title
	}

	entries, err := p.listUploads(ctx, channel.ContentDetails.RelatedPlaylists.Uploads, since)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	details, err := p.videoDetails(ctx, entries)
	if err != nil {
		return nil, err
	}

	items := make([]content.Item, 0, len(entries))
	for _, entry := range entries {
		video, ok := details[entry.videoID]
		if !ok {
			slog.Debug("Skipping video without details", "video_id", entry.videoID)
			continue
		}
		items = append(items, buildVideoItem(entry, video, channelTitle))
	}

	return items, nil
}

// listUploads pages through the uploads playlist. Uploads come newest first,
// so paging stops as soon as a page reaches the cutoff.
func (p *VideoParser) listUploads(ctx context.Context, playlistID string, since *time.Time) ([]playlistEntry, error) {
	var entries []playlistEntry
	pageToken := ""

	for page := 0; page < p.opts.MaxPages; page++ {
		call := p.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(int64(p.opts.PageSize)).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, apiError("playlistItems", playlistID, err)
		}

		reachedCutoff := false
		for _, item := range resp.Items {
			entry, ok := toPlaylistEntry(item)
			if !ok {
				continue
			}
			if beforeCutoff(entry.publishedAt, since) {
				reachedCutoff = true
				continue
			}
			entries = append(entries, entry)
		}

		if reachedCutoff || resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return entries, nil
}

func toPlaylistEntry(item *youtube.PlaylistItem) (playlistEntry, bool) {
	if item == nil || item.Snippet == nil {
		return playlistEntry{}, false
	}

	videoID := ""
	if item.Snippet.ResourceId != nil {
		videoID = item.Snippet.ResourceId.VideoId
	}
	publishedRaw := item.Snippet.PublishedAt
	if item.ContentDetails != nil {
		videoID = cmp.Or(videoID, item.ContentDetails.VideoId)
		publishedRaw = cmp.Or(publishedRaw, item.ContentDetails.VideoPublishedAt)
	}

	if videoID == "" {
		slog.Warn("Skipping entry", "error", &content.ParseError{Source: "playlist", Link: item.Snippet.Title, Reason: "missing video id"})
		return playlistEntry{}, false
	}

	published, err := time.Parse(time.RFC3339, publishedRaw)
	if err != nil {
		slog.Warn("Skipping entry", "error", &content.ParseError{Source: "playlist", Link: watchURL + videoID, Reason: "missing or unparsable publication date", Err: err})
		return playlistEntry{}, false
	}

	return playlistEntry{
		videoID:     videoID,
		publishedAt: published.UTC().Truncate(time.Second),
		snippet:     item.Snippet,
	}, true
}

func (p *VideoParser) videoDetails(ctx context.Context, entries []playlistEntry) (map[string]*youtube.Video, error) {
	details := make(map[string]*youtube.Video, len(entries))

	for start := 0; start < len(entries); start += videoDetailsBatch {
		end := min(start+videoDetailsBatch, len(entries))
		ids := make([]string, 0, end-start)
		for _, entry := range entries[start:end] {
			ids = append(ids, entry.videoID)
		}

		resp, err := p.service.Videos.List([]string{"contentDetails", "snippet"}).Id(ids...).Context(ctx).Do()
		if err != nil {
			return nil, apiError("videos", ids[0], err)
		}

		for _, video := range resp.Items {
			if video != nil && video.Id != "" {
				details[video.Id] = video
			}
		}
	}

	return details, nil
}

func buildVideoItem(entry playlistEntry, video *youtube.Video, channelTitle string) content.Item {
	link := watchURL + entry.videoID

	var thumbnails *youtube.ThumbnailDetails
	channelName := cmp.Or(entry.snippet.ChannelTitle, channelTitle)
	if video.Snippet != nil {
		thumbnails = video.Snippet.Thumbnails
		channelName = cmp.Or(channelName, video.Snippet.ChannelTitle)
	}
	thumbnail := firstNonEmpty(thumbnails, thumbnailChain...)
	if thumbnail == "" {
		thumbnail = firstNonEmpty(entry.snippet.Thumbnails, thumbnailChain...)
	}

	details := &content.Video{
		VideoURL:     link,
		ThumbnailURL: thumbnail,
	}
	if video.ContentDetails != nil {
		if seconds, err := ParseISODuration(video.ContentDetails.Duration); err == nil {
			details.Duration = content.Int(seconds)
		} else {
			slog.Debug("Unparsable video duration", "video_id", entry.videoID, "duration", video.ContentDetails.Duration)
		}
	}

	return content.Item{
		ID:          entry.videoID,
		Title:       entry.snippet.Title,
		Description: entry.snippet.Description,
		Type:        content.TypeVideo,
		ImageURL:    thumbnail,
		PublishedAt: entry.publishedAt,
		Link:        link,
		Tags:        []content.Tag{content.SourceTag(channelName, "YouTube")},
		Video:       details,
	}
}

var thumbnailChain = []extractor[*youtube.ThumbnailDetails]{
	thumbnail(func(t *youtube.ThumbnailDetails) *youtube.Thumbnail { return t.Maxres }),
	thumbnail(func(t *youtube.ThumbnailDetails) *youtube.Thumbnail { return t.Standard }),
	thumbnail(func(t *youtube.ThumbnailDetails) *youtube.Thumbnail { return t.High }),
	thumbnail(func(t *youtube.ThumbnailDetails) *youtube.Thumbnail { return t.Medium }),
	thumbnail(func(t *youtube.ThumbnailDetails) *youtube.Thumbnail { return t.Default }),
}

func thumbnail(pick func(*youtube.ThumbnailDetails) *youtube.Thumbnail) extractor[*youtube.ThumbnailDetails] {
	return func(details *youtube.ThumbnailDetails) string {
		if details == nil {
			return ""
		}
		if thumb := pick(details); thumb != nil {
			return thumb.Url
		}
		return ""
	}
}

// apiError maps a client failure onto the fetch error taxonomy.
func apiError(endpoint, id string, err error) error {
	fetchErr := &content.FetchError{URL: endpoint + "/" + id, Err: err}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		fetchErr.StatusCode = apiErr.Code
	}
	return fetchErr
}
