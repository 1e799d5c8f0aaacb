package summary

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/starford/renewer/internal/models"
)

var markdown = goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps()))

var pageTmpl = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Summary: {{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 760px; margin: 2em auto; padding: 0 1em; }
.thumb img { width: 320px; height: 180px; object-fit: cover; }
.error { color: #c00; }
</style>
</head>
<body>
<a class="thumb" href="{{.VideoURL}}" title="Open the original video"><img src="{{.Thumbnail}}" alt=""></a>
<h1>{{.Title}}</h1>
<p><a href="{{.VideoURL}}">{{.VideoURL}}</a></p>
{{if .Error}}<p class="error">{{.Error}}</p>{{else}}<div class="summary">{{.Body}}</div>{{end}}
</body>
</html>
`))

// Page is the data shown on the result page.
type Page struct {
	VideoID  string
	VideoURL string
	Title    string
	Summary  *models.Summary
	Error    string
}

type pageView struct {
	Title     string
	VideoURL  string
	Thumbnail string
	Body      template.HTML
	Error     string
}

// RenderPage writes the result page. Summary content is Markdown with hard
// line breaks; raw HTML in it is not rendered.
func RenderPage(w io.Writer, p Page) error {
	v := pageView{
		Title:     orDefault(p.Title, DefaultTitle),
		VideoURL:  p.VideoURL,
		Thumbnail: PreviewThumbnail(p.VideoID),
		Error:     p.Error,
	}
	if p.VideoID == "" || p.VideoURL == "" {
		v.Error = "No valid video information found."
	}
	if v.Error == "" && p.Summary != nil {
		if p.Summary.Title != "" {
			v.Title = p.Summary.Title
		}
		if p.Summary.Thumbnail != "" {
			v.Thumbnail = p.Summary.Thumbnail
		}
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(orDefault(p.Summary.Content, noContent)), &buf); err != nil {
			return fmt.Errorf("summary: render content: %w", err)
		}
		v.Body = template.HTML(buf.String()) //nolint:gosec // goldmark escapes raw HTML by default
	}
	return pageTmpl.Execute(w, v)
}
