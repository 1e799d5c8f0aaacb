// Package parser extracts frontmatter and link/embed occurrences from Markdown content.
package parser

import (
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/starford/renewer/internal/models"
)

var (
	markdownLinkRe = regexp.MustCompile(`(!?)\[([^\[\]\n]*)\]\(([^()\n]*)\)`)
	wikilinkRe     = regexp.MustCompile(`(!?)\[\[([^\[\]\n]+)\]\]`)
	titleSuffixRe  = regexp.MustCompile(`^(.*?)\s+("[^"]*"|'[^']*')$`)

	md = goldmark.New()
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	// BodyOffset is the byte offset of Body within the parsed data.
	BodyOffset int
	Links      []models.LinkRef
	// Relink is false when the frontmatter opts the note out of rewriting.
	Relink bool
}

// Parse extracts frontmatter, body and link occurrences from raw Markdown bytes.
// Links are returned in document order; links inside code spans and code
// blocks are ignored.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		BodyOffset:  len(data) - len(body),
		Links:       extractLinks(body),
		Relink:      relinkEnabled(fm),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: the whole file is body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

func relinkEnabled(fm map[string]interface{}) bool {
	if v, ok := fm["relink"].(bool); ok {
		return v
	}
	return true
}

type span struct{ start, stop int }

// extractLinks finds Markdown links, embeds and wikilinks outside code.
func extractLinks(body string) []models.LinkRef {
	src := []byte(body)
	code := codeSpans(src)

	type hit struct {
		pos int
		ref models.LinkRef
	}
	var hits []hit

	for _, m := range markdownLinkRe.FindAllStringSubmatchIndex(body, -1) {
		if inSpans(code, m[0]) {
			continue
		}
		dest, _ := SplitDestination(body[m[6]:m[7]])
		hits = append(hits, hit{pos: m[0], ref: models.LinkRef{
			Original: body[m[0]:m[1]],
			Link:     dest,
			Text:     body[m[4]:m[5]],
			Kind:     models.LinkMarkdown,
			Embed:    m[3] > m[2],
		}})
	}

	for _, m := range wikilinkRe.FindAllStringSubmatchIndex(body, -1) {
		if inSpans(code, m[0]) {
			continue
		}
		inner := body[m[4]:m[5]]
		target, alias := inner, ""
		if i := strings.Index(inner, "|"); i >= 0 {
			target, alias = inner[:i], inner[i+1:]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		hits = append(hits, hit{pos: m[0], ref: models.LinkRef{
			Original: body[m[0]:m[1]],
			Link:     target,
			Text:     alias,
			Kind:     models.LinkWiki,
			Embed:    m[3] > m[2],
		}})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]models.LinkRef, len(hits))
	for i, h := range hits {
		out[i] = h.ref
	}
	return out
}

// SplitDestination separates a Markdown link destination from its optional
// quoted title: `a b.md "Title"` -> (`a b.md`, ` "Title"`). Angle-bracketed
// destinations are unwrapped.
func SplitDestination(inner string) (dest, title string) {
	trimmed := strings.TrimSpace(inner)
	if strings.HasPrefix(trimmed, "<") {
		if end := strings.Index(trimmed, ">"); end > 0 {
			return trimmed[1:end], trimmed[end+1:]
		}
	}
	if m := titleSuffixRe.FindStringSubmatch(trimmed); m != nil {
		return m[1], trimmed[len(m[1]):]
	}
	return trimmed, ""
}

// codeSpans returns byte ranges of code blocks and inline code in src.
func codeSpans(src []byte) []span {
	doc := md.Parser().Parse(text.NewReader(src))
	var out []span
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock:
			lines := n.Lines()
			if lines.Len() > 0 {
				out = append(out, span{lines.At(0).Start, lines.At(lines.Len() - 1).Stop})
			}
			return ast.WalkSkipChildren, nil
		case ast.KindCodeSpan:
			start, stop := -1, -1
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				t, ok := c.(*ast.Text)
				if !ok {
					continue
				}
				if start < 0 {
					start = t.Segment.Start
				}
				stop = t.Segment.Stop
			}
			if start >= 0 {
				out = append(out, span{start, stop})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

func inSpans(spans []span, pos int) bool {
	for _, s := range spans {
		if pos >= s.start && pos < s.stop {
			return true
		}
	}
	return false
}

// ReplaceOutsideCode replaces the first occurrence of old in body that does
// not start inside a code span or code block.
func ReplaceOutsideCode(body, old, repl string) (string, bool) {
	code := codeSpans([]byte(body))
	for from := 0; from <= len(body); {
		i := strings.Index(body[from:], old)
		if i < 0 {
			return body, false
		}
		pos := from + i
		if !inSpans(code, pos) {
			return body[:pos] + repl + body[pos+len(old):], true
		}
		from = pos + 1
	}
	return body, false
}
