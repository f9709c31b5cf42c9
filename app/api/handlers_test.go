package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/content-hub/app/content"
	"github.com/lysyi3m/content-hub/app/database"
	"github.com/lysyi3m/content-hub/app/ingest"
	"github.com/lysyi3m/content-hub/app/query"
)

type mockRunner struct {
	result ingest.Result
	err    error
	last   ingest.Request
}

func (m *mockRunner) Run(ctx context.Context, req ingest.Request) (ingest.Result, error) {
	m.last = req
	return m.result, m.err
}

func setupTestServer(t *testing.T, runner IngestRunner) (*gin.Engine, *database.Store) {
	t.Helper()

	db, err := database.Connect(":memory:")
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	store := database.NewStore(db)
	handler := NewHandler(runner, query.NewService(store, 2), store, db, FeedInfo{
		Title:       "Content Hub",
		Description: "Latest content",
		BaseURL:     "http://localhost:8080",
	}, "test")

	return NewServer(handler), store
}

func seedContent(t *testing.T, store *database.Store) {
	t.Helper()

	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	items := []content.Item{
		{
			ID: "a1", Title: "Article", Description: "<p>Hello <b>world</b></p>", Type: content.TypeArticle,
			PublishedAt: base, Link: "https://example.com/p/article",
			Tags:    []content.Tag{content.NewTag("The Triad", content.TagTypeSource)},
			Article: &content.Article{Content: "<p>Hello world</p>", Author: "Jane Doe", ExtractionStatus: content.ExtractionNotNeeded},
		},
		{
			ID: "e1", Title: "Episode", Description: "Episode notes", Type: content.TypePodcast,
			PublishedAt: base.Add(time.Hour), Link: "https://thebulwark.substack.com/p/episode",
			Tags:    []content.Tag{content.NewTag("Bulwark Podcast", content.TagTypeSource)},
			Podcast: &content.Podcast{AudioURL: "https://cdn.example.com/e1.mp3", Duration: content.Int(2700)},
		},
		{
			ID: "v1", Title: "Video", Description: "Video description", Type: content.TypeVideo,
			PublishedAt: base.Add(2 * time.Hour), Link: "https://www.youtube.com/watch?v=v1",
			Tags:  []content.Tag{content.NewTag("Bulwark TV", content.TagTypeSource)},
			Video: &content.Video{VideoURL: "https://www.youtube.com/watch?v=v1", Duration: content.Int(60)},
		},
	}

	for _, item := range items {
		if _, err := store.SaveItem(context.Background(), item); err != nil {
			t.Fatalf("Failed to seed %s: %v", item.Link, err)
		}
	}
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIngest_Success(t *testing.T) {
	runner := &mockRunner{result: ingest.Result{RunID: "run-1", ItemsProcessed: 7, ItemsFailed: 1}}
	r, _ := setupTestServer(t, runner)

	w := perform(r, http.MethodPost, "/api/ingest", `{"updateDb": true, "since": "2024-03-11T00:00:00Z"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success || resp.ItemsProcessed != 7 || resp.RunID != "run-1" {
		t.Errorf("Unexpected response: %+v", resp)
	}

	if !runner.last.UpdateDB || runner.last.TriggeredBy != "api" {
		t.Errorf("Unexpected request passed to runner: %+v", runner.last)
	}
	expectedSince := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if runner.last.Since == nil || !runner.last.Since.Equal(expectedSince) {
		t.Errorf("Expected since %s, got %v", expectedSince, runner.last.Since)
	}
}

func TestIngest_EmptyBodyUsesWatermark(t *testing.T) {
	runner := &mockRunner{}
	r, _ := setupTestServer(t, runner)

	w := perform(r, http.MethodPost, "/api/ingest", "")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if runner.last.Since != nil {
		t.Errorf("Expected no since override, got %v", runner.last.Since)
	}
}

func TestIngest_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		expected int
	}{
		{"malformed body", `{"updateDb": "yes"`, nil, http.StatusBadRequest},
		{"run in progress", `{"updateDb": true}`, content.ErrRunInProgress, http.StatusConflict},
		{"fatal", `{"updateDb": true}`, &content.FatalIngestionError{Reason: "every source failed"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupTestServer(t, &mockRunner{err: tt.err})

			w := perform(r, http.MethodPost, "/api/ingest", tt.body)
			if w.Code != tt.expected {
				t.Errorf("Expected status %d, got %d", tt.expected, w.Code)
			}

			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Error == "" {
				t.Error("Expected error field in response")
			}
			if tt.expected == http.StatusInternalServerError && resp.Details != tt.err.Error() {
				t.Errorf("Expected details '%s', got '%s'", tt.err.Error(), resp.Details)
			}
		})
	}
}

func TestListContent(t *testing.T) {
	r, store := setupTestServer(t, &mockRunner{})
	seedContent(t, store)

	w := perform(r, http.MethodGet, "/api/content?page=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var page query.Page
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(page.Items))
	}
	if page.Items[0].Title != "Video" || page.Items[0].EmbedURL != "https://www.youtube.com/embed/v1" {
		t.Errorf("Unexpected first item: %+v", page.Items[0])
	}
	if page.Items[1].EmbedURL != "https://thebulwark.substack.com/embed/p/episode" {
		t.Errorf("Expected substack embed, got '%s'", page.Items[1].EmbedURL)
	}
	if page.NextPage == nil || *page.NextPage != 2 {
		t.Errorf("Expected next page 2, got %v", page.NextPage)
	}

	w = perform(r, http.MethodGet, "/api/content?page=2&contentType=all", "")
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(page.Items) != 1 || page.NextPage != nil {
		t.Errorf("Expected last page with 1 item, got %d items", len(page.Items))
	}
	if page.Items[0].Excerpt != "Hello world" {
		t.Errorf("Expected excerpt 'Hello world', got '%s'", page.Items[0].Excerpt)
	}
}

func TestListContent_NullNextPage(t *testing.T) {
	r, _ := setupTestServer(t, &mockRunner{})

	w := perform(r, http.MethodGet, "/api/content", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"nextPage":null`) {
		t.Errorf("Expected explicit null nextPage, got %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("Expected empty items array, got %s", w.Body.String())
	}
}

func TestListContent_InvalidParameters(t *testing.T) {
	r, _ := setupTestServer(t, &mockRunner{})

	for _, path := range []string{"/api/content?page=abc", "/api/content?page=0", "/api/content?contentType=newsletter"} {
		w := perform(r, http.MethodGet, path, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", path, w.Code)
		}
	}
}

func TestGetContent(t *testing.T) {
	r, store := setupTestServer(t, &mockRunner{})
	seedContent(t, store)

	items, err := store.ListItems(context.Background(), database.ListFilter{Type: content.TypeArticle, Limit: 1})
	if err != nil || len(items) != 1 {
		t.Fatalf("Failed to find seeded article: %v", err)
	}

	w := perform(r, http.MethodGet, fmt.Sprintf("/api/content/%d", items[0].ContentID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var entry query.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if entry.Article == nil || entry.Article.Author != "Jane Doe" {
		t.Errorf("Expected article details, got %+v", entry.Article)
	}

	if w := perform(r, http.MethodGet, "/api/content/9999", ""); w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w := perform(r, http.MethodGet, "/api/content/abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestFeeds(t *testing.T) {
	r, store := setupTestServer(t, &mockRunner{})
	seedContent(t, store)

	tests := []struct {
		path        string
		contentType string
		marker      string
	}{
		{"/feed.xml", "application/rss+xml", "<rss"},
		{"/feed.atom", "application/atom+xml", "<feed"},
		{"/feed.json", "application/feed+json", `"version"`},
	}

	for _, tt := range tests {
		w := perform(r, http.MethodGet, tt.path, "")
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", tt.path, w.Code)
			continue
		}
		if !strings.HasPrefix(w.Header().Get("Content-Type"), tt.contentType) {
			t.Errorf("%s: expected content type %s, got %s", tt.path, tt.contentType, w.Header().Get("Content-Type"))
		}
		if w.Header().Get("X-Feed-Items") != "3" {
			t.Errorf("%s: expected 3 feed items, got %s", tt.path, w.Header().Get("X-Feed-Items"))
		}
		body := w.Body.String()
		if !strings.Contains(body, tt.marker) || !strings.Contains(body, "https://www.youtube.com/watch?v=v1") {
			t.Errorf("%s: unexpected body %s", tt.path, body)
		}
	}
}

func TestHealthAndStats(t *testing.T) {
	r, store := setupTestServer(t, &mockRunner{})
	seedContent(t, store)

	watermark := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if err := store.SetLastFetch(context.Background(), watermark); err != nil {
		t.Fatalf("Failed to set watermark: %v", err)
	}

	if w := perform(r, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("Expected health status 200, got %d", w.Code)
	}

	w := perform(r, http.MethodGet, "/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected stats status 200, got %d", w.Code)
	}

	var stats struct {
		Items struct {
			Total  int            `json:"total"`
			ByType map[string]int `json:"by_type"`
		} `json:"items"`
		Tags      int    `json:"tags"`
		LastFetch string `json:"last_fetch"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats.Items.Total != 3 || stats.Items.ByType["podcast"] != 1 {
		t.Errorf("Unexpected counts: %+v", stats.Items)
	}
	if stats.Tags != 3 {
		t.Errorf("Expected 3 tags, got %d", stats.Tags)
	}
	if stats.LastFetch != "2024-03-11T00:00:00Z" {
		t.Errorf("Expected last fetch 2024-03-11T00:00:00Z, got %s", stats.LastFetch)
	}
}

func TestCORSPreflight(t *testing.T) {
	r, _ := setupTestServer(t, &mockRunner{})

	w := perform(r, http.MethodOptions, "/api/ingest", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header")
	}
}
