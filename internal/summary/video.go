package summary

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultTitle is used when neither the response nor the request names the video.
const DefaultTitle = "YouTube video"

// ExtractVideoID returns the video ID of a YouTube URL: the "v" query
// parameter on youtube.com hosts, the path on youtu.be. Anything else,
// including unparsable input, yields "".
func ExtractVideoID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.Contains(host, "youtube.com"):
		return u.Query().Get("v")
	case strings.Contains(host, "youtu.be"):
		return strings.TrimPrefix(u.Path, "/")
	}
	return ""
}

// IsWatchURL reports whether raw looks like a YouTube video page.
func IsWatchURL(raw string) bool {
	return strings.Contains(raw, "youtube.com/watch")
}

// Thumbnail is the full-size thumbnail of a video.
func Thumbnail(videoID string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/maxresdefault.jpg", videoID)
}

// PreviewThumbnail is the medium thumbnail shown while a summary loads.
func PreviewThumbnail(videoID string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/mqdefault.jpg", videoID)
}

// VideoInfo describes the video on a page.
type VideoInfo struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title"`
}

// InfoFromPage derives video info from a page URL and document title.
func InfoFromPage(pageURL, pageTitle string) VideoInfo {
	return VideoInfo{
		VideoID: ExtractVideoID(pageURL),
		Title:   strings.Replace(pageTitle, " - YouTube", "", 1),
	}
}
