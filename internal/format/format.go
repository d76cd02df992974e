// Package format turns stored post text into display HTML.
package format

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

// Message formats of posts and section summaries.
const (
	FormatMoodle   = 0
	FormatHTML     = 1
	FormatPlain    = 2
	FormatMarkdown = 4
)

// Formatter renders and sanitizes user text.
type Formatter struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

// New creates a Formatter.
func New() *Formatter {
	md := goldmark.New(
		goldmark.WithRendererOptions(gmhtml.WithUnsafe(), gmhtml.WithHardWraps()),
		goldmark.WithExtensions(extension.Strikethrough, extension.Table, extension.Linkify),
	)
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^[\w\- ]+$`)).OnElements("span", "div", "p")
	policy.AllowRelativeURLs(true)

	return &Formatter{md: md, policy: policy, strict: bluemonday.StrictPolicy()}
}

// Text converts text stored in the given format to HTML. Trusted text is not
// sanitized.
func (f *Formatter) Text(text string, format int, trusted bool) string {
	var out string
	switch format {
	case FormatPlain:
		return nl2br(html.EscapeString(text))
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := f.md.Convert([]byte(text), &buf); err != nil {
			return nl2br(html.EscapeString(text))
		}
		out = strings.TrimSpace(buf.String())
	case FormatHTML:
		out = text
	default:
		out = `<div class="text_to_html">` + nl2br(text) + `</div>`
	}
	if trusted {
		return out
	}
	return f.policy.Sanitize(out)
}

// String formats a single line such as a subject or a name: markup is
// dropped and the rest escaped.
func (f *Formatter) String(s string) string {
	return f.strict.Sanitize(strings.TrimSpace(s))
}

// StripTags returns the text content of s without markup or entities.
func (f *Formatter) StripTags(s string) string {
	return html.UnescapeString(f.strict.Sanitize(s))
}

func nl2br(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br />\n")
}

// CountWords counts the words of an HTML fragment; tags separate words.
func CountWords(s string) int {
	z := html.NewTokenizer(strings.NewReader(s))
	n := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return n
		case html.TextToken:
			n += len(strings.Fields(string(z.Text())))
		}
	}
}

// TextLength is the number of characters of visible text in s.
func TextLength(s string) int {
	z := html.NewTokenizer(strings.NewReader(s))
	n := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return n
		case html.TextToken:
			n += len([]rune(string(z.Text())))
		}
	}
}
