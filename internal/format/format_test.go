//go:build unit

package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	f := New()

	t.Run("plain text is escaped", func(t *testing.T) {
		got := f.Text("a <b>\nc", FormatPlain, false)
		assert.Equal(t, "a &lt;b&gt;<br />\nc", got)
	})

	t.Run("html is sanitized", func(t *testing.T) {
		got := f.Text(`<p>hi</p><script>alert(1)</script>`, FormatHTML, false)
		assert.Equal(t, "<p>hi</p>", got)
	})

	t.Run("trusted html is kept", func(t *testing.T) {
		in := `<p onclick="x()">hi</p>`
		assert.Equal(t, in, f.Text(in, FormatHTML, true))
	})

	t.Run("markdown is rendered", func(t *testing.T) {
		got := f.Text("**bold**", FormatMarkdown, false)
		assert.Equal(t, "<p><strong>bold</strong></p>", got)
	})

	t.Run("auto format keeps line breaks", func(t *testing.T) {
		got := f.Text("one\ntwo", FormatMoodle, false)
		assert.Contains(t, got, `<div class="text_to_html">`)
		assert.Contains(t, got, "one<br")
	})
}

func TestStringAndStripTags(t *testing.T) {
	f := New()
	assert.Equal(t, "Hello world", f.String("  <b>Hello</b> world "))
	assert.Equal(t, "Fish & chips", f.StripTags("<p>Fish &amp; chips</p>"))
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 3, CountWords("<p>one two</p><p>three</p>"))
	assert.Equal(t, 2, CountWords("one<br>two"))
}

func TestShortenText(t *testing.T) {
	t.Run("short text is unchanged", func(t *testing.T) {
		in := "<p>short</p>"
		assert.Equal(t, in, ShortenText(in, 100))
	})

	t.Run("cut at word boundary", func(t *testing.T) {
		got := ShortenText("hello wonderful world", 10)
		assert.Equal(t, "hello...", got)
	})

	t.Run("open tags are closed", func(t *testing.T) {
		got := ShortenText("<div><p>lorem <b>ipsum dolor</b> sit amet</p></div>", 14)
		assert.Equal(t, "<div><p>lorem <b>ipsum...</b></p></div>", got)
	})

	t.Run("void elements are not closed", func(t *testing.T) {
		got := ShortenText("<p>a<br>bbbb cccc dddd</p>", 8)
		assert.Equal(t, "<p>a<br>bbbb...</p>", got)
	})

	t.Run("result never exceeds ideal text", func(t *testing.T) {
		in := "<p>" + strings.Repeat("word ", 200) + "</p>"
		got := ShortenText(in, 300)
		assert.LessOrEqual(t, TextLength(got), 300+len(Ellipsis))
		assert.True(t, strings.HasSuffix(got, Ellipsis+"</p>"))
	})
}

func TestHighlight(t *testing.T) {
	got := Highlight("cat", `<a href="/cat">The Cat sat</a>`)
	assert.Equal(t, `<a href="/cat">The <span class="highlight">Cat</span> sat</a>`, got)

	assert.Equal(t, "x &amp; y", Highlight("amp", "x &amp; y"), "entities are not split")
	assert.Equal(t, "<p>text</p>", Highlight("  ", "<p>text</p>"))
}
