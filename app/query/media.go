package query

import (
	"html"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/lysyi3m/content-hub/app/content"
	"github.com/microcosm-cc/bluemonday"
)

const excerptLength = 280

var (
	htmlStripper = bluemonday.StrictPolicy()

	appleShowID    = regexp.MustCompile(`/id(\d+)`)
	appleEpisodeID = regexp.MustCompile(`[?&]i=(\d+)`)
)

// Excerpt renders an item description as plain text, cut to excerptLength
// runes.
func Excerpt(description string) string {
	s := htmlStripper.Sanitize(description)
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")

	if utf8.RuneCountInString(s) <= excerptLength {
		return s
	}

	runes := []rune(s)
	return strings.TrimSpace(string(runes[:excerptLength-3])) + "..."
}

// EmbedURL returns a player URL for videos and podcasts, or "" when the link
// has no known embeddable form.
func EmbedURL(item content.Item) string {
	switch item.Type {
	case content.TypeVideo:
		link := item.Link
		if item.Video != nil && item.Video.VideoURL != "" {
			link = item.Video.VideoURL
		}
		return youtubeEmbed(link)
	case content.TypePodcast:
		return podcastEmbed(item.Link)
	}
	return ""
}

func youtubeEmbed(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch host {
	case "youtube.com", "m.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return "https://www.youtube.com/embed/" + id
		}
	case "youtu.be":
		if id := strings.Trim(u.Path, "/"); id != "" {
			return "https://www.youtube.com/embed/" + id
		}
	}
	return ""
}

// podcastEmbed maps Substack posts and Apple Podcasts episodes to their
// embeddable players.
func podcastEmbed(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}

	host := u.Hostname()
	switch {
	case strings.HasSuffix(host, "substack.com"):
		_, post, found := strings.Cut(u.Path, "/p/")
		if !found || post == "" {
			return ""
		}
		return "https://" + host + "/embed/p/" + post
	case host == "podcasts.apple.com":
		show := appleShowID.FindStringSubmatch(u.Path)
		if show == nil {
			return ""
		}
		embed := "https://embed.podcasts.apple.com/us/podcast/id" + show[1]
		if episode := appleEpisodeID.FindStringSubmatch("?" + u.RawQuery); episode != nil {
			embed += "?i=" + episode[1]
		}
		return embed
	}
	return ""
}
