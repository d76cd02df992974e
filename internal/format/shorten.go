package format

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Ellipsis is appended to shortened text.
const Ellipsis = "..."

var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true, atom.Embed: true,
	atom.Hr: true, atom.Img: true, atom.Input: true, atom.Link: true, atom.Meta: true,
	atom.Source: true, atom.Track: true, atom.Wbr: true,
}

// ShortenText cuts an HTML fragment to about ideal visible characters. The
// cut falls on a word boundary when the last text run has one, an ellipsis is
// appended and every tag still open is closed. Text that already fits is
// returned unchanged.
func ShortenText(s string, ideal int) string {
	if TextLength(s) <= ideal {
		return s
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	var open []string
	total := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			runes := []rune(string(z.Text()))
			if total+len(runes) <= ideal {
				total += len(runes)
				b.WriteString(html.EscapeString(string(runes)))
				continue
			}
			piece := string(runes[:ideal-total])
			if i := strings.LastIndexAny(piece, " \t\n"); i > 0 {
				piece = piece[:i]
			}
			b.WriteString(html.EscapeString(strings.TrimRight(piece, " \t\n")))
			b.WriteString(Ellipsis)
			for i := len(open) - 1; i >= 0; i-- {
				b.WriteString("</" + open[i] + ">")
			}
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			b.Write(z.Raw())
			if !voidElements[atom.Lookup(name)] {
				open = append(open, string(name))
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			for i := len(open) - 1; i >= 0; i-- {
				if open[i] == string(name) {
					open = append(open[:i], open[i+1:]...)
					break
				}
			}
			b.Write(z.Raw())
		default:
			b.Write(z.Raw())
		}
	}
}

// Highlight wraps every case-insensitive occurrence of the words of needle
// found in the text of s with <span class="highlight">. Markup is left alone.
func Highlight(needle, s string) string {
	var words []string
	for _, w := range strings.Fields(needle) {
		w = strings.TrimLeft(w, "+-")
		if w != "" {
			words = append(words, regexp.QuoteMeta(w))
		}
	}
	if len(words) == 0 {
		return s
	}
	re := regexp.MustCompile(`(?i)` + strings.Join(words, "|"))

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			text := string(z.Text())
			last := 0
			for _, m := range re.FindAllStringIndex(text, -1) {
				b.WriteString(html.EscapeString(text[last:m[0]]))
				b.WriteString(`<span class="highlight">` + html.EscapeString(text[m[0]:m[1]]) + `</span>`)
				last = m[1]
			}
			b.WriteString(html.EscapeString(text[last:]))
		default:
			b.Write(z.Raw())
		}
	}
}
