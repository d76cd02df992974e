// Package render produces the HTML of forum posts, discussion lists and
// course pages.
package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-course-format/internal/format"
	"go-course-format/internal/i18n"
	"go-course-format/internal/logger"
	"go-course-format/internal/service"
)

// Templates executes named HTML fragments.
type Templates interface {
	Fragment(name string, data interface{}) (template.HTML, error)
}

// TextCache keeps formatted text between requests. A nil value from Get is a
// miss.
type TextCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Renderer renders forum and course markup.
type Renderer struct {
	forums service.ForumServicer
	tmpl   Templates
	text   *format.Formatter
	str    *i18n.Strings
	log    logger.Logger
	cache  TextCache
}

// New creates a Renderer.
func New(forums service.ForumServicer, tmpl Templates, text *format.Formatter, str *i18n.Strings, log logger.Logger) *Renderer {
	return &Renderer{forums: forums, tmpl: tmpl, text: text, str: str, log: log}
}

// WithCache stores formatted message bodies in c.
func (r *Renderer) WithCache(c TextCache) *Renderer {
	r.cache = c
	return r
}

// textCacheKey addresses formatted text by its input, so an edited message
// never hits the entry of its previous version.
func textCacheKey(text string, textFormat int, trusted bool) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%t:%s", textFormat, trusted, text)))
	return "text:" + hex.EncodeToString(sum[:])
}

// formatText converts stored text to HTML. Cache failures fall back to
// formatting the text again.
func (r *Renderer) formatText(ctx context.Context, text string, textFormat int, trusted bool) string {
	if r.cache == nil {
		return r.text.Text(text, textFormat, trusted)
	}
	key := textCacheKey(text, textFormat, trusted)
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn(fmt.Sprintf("Reading formatted text from cache: %v", err))
	} else if raw != nil {
		return string(raw)
	}

	out := r.text.Text(text, textFormat, trusted)
	if err := r.cache.Set(ctx, key, []byte(out), 0); err != nil {
		r.log.Warn(fmt.Sprintf("Storing formatted text in cache: %v", err))
	}
	return out
}

func escape(s string) template.HTML {
	return template.HTML(template.HTMLEscapeString(s))
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// link builds an absolute URL below wwwroot. params are key/value pairs;
// an empty anchor is omitted.
func (r *Renderer) link(path, anchor string, params ...string) string {
	root := strings.TrimRight(r.forums.Config().WWWRoot, "/")
	u := root + path
	if len(params) > 0 {
		q := url.Values{}
		for i := 0; i+1 < len(params); i += 2 {
			q.Add(params[i], params[i+1])
		}
		u += "?" + q.Encode()
	}
	if anchor != "" {
		u += "#" + anchor
	}
	return u
}

func (r *Renderer) date(unix int64) string {
	return r.str.Date(time.Unix(unix, 0).In(r.forums.Config().Location()))
}

func (r *Renderer) discussionURL(discussionID int64, anchor string, params ...string) string {
	return r.link("/mod/forum/discuss.php", anchor, append([]string{"d", itoa(discussionID)}, params...)...)
}

func (r *Renderer) profileURL(userID, courseID int64) string {
	return r.link("/user/view.php", "", "id", itoa(userID), "course", itoa(courseID))
}

func (r *Renderer) pictureURL(userID int64, hasPicture bool) string {
	if !hasPicture {
		return r.link("/static/u-default.svg", "")
	}
	return r.link("/user/pix.php/"+itoa(userID)+"/f2.jpg", "")
}
