package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/content-hub/app/content"
	"google.golang.org/api/option"
)

const channelsResponse = `{
  "items": [{
    "id": "UC123",
    "snippet": {"title": "Bulwark TV"},
    "contentDetails": {"relatedPlaylists": {"uploads": "UU123"}}
  }]
}`

const playlistPage1 = `{
  "nextPageToken": "page-2",
  "items": [
    {"snippet": {"title": "Newest", "description": "First", "publishedAt": "2024-03-12T15:00:00Z", "channelTitle": "Bulwark TV",
      "resourceId": {"videoId": "vid-3"}}},
    {"snippet": {"title": "Middle", "description": "Second", "publishedAt": "2024-03-11T15:00:00Z", "channelTitle": "Bulwark TV",
      "resourceId": {"videoId": "vid-2"}}}
  ]
}`

const playlistPage2 = `{
  "items": [
    {"snippet": {"title": "Oldest", "description": "Third", "publishedAt": "2024-03-10T15:00:00Z", "channelTitle": "Bulwark TV",
      "resourceId": {"videoId": "vid-1"}}},
    {"snippet": {"title": "Undated", "resourceId": {"videoId": "vid-0"}}}
  ]
}`

const videosResponse = `{
  "items": [
    {"id": "vid-3", "contentDetails": {"duration": "PT1H2M3S"},
      "snippet": {"thumbnails": {"high": {"url": "https://i.ytimg.com/vid-3/high.jpg"}, "maxres": {"url": "https://i.ytimg.com/vid-3/maxres.jpg"}}}},
    {"id": "vid-2", "contentDetails": {"duration": "PT45S"},
      "snippet": {"thumbnails": {"standard": {"url": "https://i.ytimg.com/vid-2/sd.jpg"}, "default": {"url": "https://i.ytimg.com/vid-2/default.jpg"}}}},
    {"id": "vid-1", "contentDetails": {"duration": "PT2M"},
      "snippet": {"thumbnails": {"medium": {"url": "https://i.ytimg.com/vid-1/mq.jpg"}}}}
  ]
}`

type fakeYouTube struct {
	server        *httptest.Server
	playlistCalls atomic.Int32
	videoCalls    atomic.Int32
	failChannels  bool
}

func newFakeYouTube(t *testing.T) *fakeYouTube {
	t.Helper()

	fake := &fakeYouTube{}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasSuffix(r.URL.Path, "/channels"):
			if fake.failChannels {
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error": {"code": 403, "message": "quota exceeded"}}`))
				return
			}
			w.Write([]byte(channelsResponse))
		case strings.HasSuffix(r.URL.Path, "/playlistItems"):
			fake.playlistCalls.Add(1)
			if r.URL.Query().Get("pageToken") == "page-2" {
				w.Write([]byte(playlistPage2))
				return
			}
			w.Write([]byte(playlistPage1))
		case strings.HasSuffix(r.URL.Path, "/videos"):
			fake.videoCalls.Add(1)
			w.Write([]byte(videosResponse))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(fake.server.Close)

	return fake
}

func (f *fakeYouTube) parser(t *testing.T, opts VideoOptions) *VideoParser {
	t.Helper()

	p, err := NewVideoParser(context.Background(), "test-key", []string{"UC123"}, opts,
		option.WithEndpoint(f.server.URL+"/"),
		option.WithHTTPClient(f.server.Client()))
	if err != nil {
		t.Fatalf("Failed to create video parser: %v", err)
	}
	return p
}

func TestVideoCollect(t *testing.T) {
	fake := newFakeYouTube(t)
	p := fake.parser(t, VideoOptions{PageSize: 2, MaxPages: 3})

	report := p.Collect(context.Background(), nil)

	if report.Failed != 0 {
		t.Fatalf("Expected no failures, got: %v", report.Errors)
	}
	if len(report.Items) != 3 {
		t.Fatalf("Expected 3 videos, got: %d", len(report.Items))
	}
	if fake.playlistCalls.Load() != 2 {
		t.Errorf("Expected 2 playlist pages, got: %d", fake.playlistCalls.Load())
	}

	newest := findItem(report.Items, "https://www.youtube.com/watch?v=vid-3")
	if newest == nil {
		t.Fatal("Expected newest video")
	}
	if newest.ID != "vid-3" {
		t.Errorf("Expected ID 'vid-3', got: %s", newest.ID)
	}
	if newest.Type != content.TypeVideo {
		t.Errorf("Expected video type, got: %s", newest.Type)
	}
	if newest.Video == nil || newest.Video.Duration == nil || *newest.Video.Duration != 3723 {
		t.Errorf("Expected duration 3723, got: %+v", newest.Video)
	}
	if newest.Video.ThumbnailURL != "https://i.ytimg.com/vid-3/maxres.jpg" {
		t.Errorf("Expected maxres thumbnail, got: %s", newest.Video.ThumbnailURL)
	}
	if newest.ImageURL != newest.Video.ThumbnailURL {
		t.Errorf("Expected image URL to match thumbnail, got: %s", newest.ImageURL)
	}
	if len(newest.Tags) != 1 || newest.Tags[0].Name != "bulwark-tv" {
		t.Errorf("Expected source tag 'bulwark-tv', got: %+v", newest.Tags)
	}

	middle := findItem(report.Items, "https://www.youtube.com/watch?v=vid-2")
	if middle == nil || middle.Video.ThumbnailURL != "https://i.ytimg.com/vid-2/sd.jpg" {
		t.Errorf("Expected standard thumbnail for vid-2, got: %+v", middle)
	}
	if *middle.Video.Duration != 45 {
		t.Errorf("Expected duration 45, got: %d", *middle.Video.Duration)
	}

	oldest := findItem(report.Items, "https://www.youtube.com/watch?v=vid-1")
	if oldest == nil || oldest.Video.ThumbnailURL != "https://i.ytimg.com/vid-1/mq.jpg" {
		t.Errorf("Expected medium thumbnail for vid-1, got: %+v", oldest)
	}
	if *oldest.Video.Duration != 120 {
		t.Errorf("Expected duration 120, got: %d", *oldest.Video.Duration)
	}
}

func TestVideoCollectStopsAtCutoff(t *testing.T) {
	fake := newFakeYouTube(t)
	p := fake.parser(t, VideoOptions{PageSize: 2, MaxPages: 3})

	since := time.Date(2024, 3, 11, 15, 0, 0, 0, time.UTC)
	report := p.Collect(context.Background(), &since)

	if len(report.Items) != 1 || report.Items[0].ID != "vid-3" {
		t.Fatalf("Expected only vid-3 after cutoff, got: %+v", report.Items)
	}
	if fake.playlistCalls.Load() != 1 {
		t.Errorf("Expected paging to stop at the cutoff page, got %d calls", fake.playlistCalls.Load())
	}
}

func TestVideoCollectRespectsMaxPages(t *testing.T) {
	fake := newFakeYouTube(t)
	p := fake.parser(t, VideoOptions{PageSize: 2, MaxPages: 1})

	report := p.Collect(context.Background(), nil)

	if len(report.Items) != 2 {
		t.Errorf("Expected 2 videos from a single page, got: %d", len(report.Items))
	}
	if fake.playlistCalls.Load() != 1 {
		t.Errorf("Expected 1 playlist call, got: %d", fake.playlistCalls.Load())
	}
}

func TestVideoCollectChannelFailure(t *testing.T) {
	fake := newFakeYouTube(t)
	fake.failChannels = true
	p := fake.parser(t, VideoOptions{})

	report := p.Collect(context.Background(), nil)

	if !report.AllFailed() {
		t.Fatalf("Expected channel failure, got: %+v", report)
	}
	var fetchErr *content.FetchError
	if !errors.As(report.Errors[0], &fetchErr) || fetchErr.StatusCode != http.StatusForbidden {
		t.Errorf("Expected FetchError with status 403, got: %v", report.Errors[0])
	}
}

func TestVideoCollectWithoutAPIKey(t *testing.T) {
	p, err := NewVideoParser(context.Background(), "", []string{"UC123"}, VideoOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	report := p.Collect(context.Background(), nil)

	if len(report.Items) != 0 {
		t.Errorf("Expected no items, got: %d", len(report.Items))
	}
	if report.Attempted != 0 {
		t.Errorf("Expected no attempted sources, got: %d", report.Attempted)
	}
	var configErr *content.ConfigurationError
	if len(report.Errors) != 1 || !errors.As(report.Errors[0], &configErr) {
		t.Errorf("Expected ConfigurationError, got: %v", report.Errors)
	}
}
