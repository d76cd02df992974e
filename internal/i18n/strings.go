// Package i18n holds the user-facing strings of the course and forum pages.
package i18n

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
)

var english = map[string]string{
	"addanewtopic":             "Add a new topic",
	"addanewquestion":          "Add a new question",
	"addanewdiscussion":        "Add a new discussion topic",
	"nonews":                   "No news has been posted yet",
	"noquestions":              "There are no questions yet in this forum",
	"nodiscussions":            "There are no discussion topics yet in this forum",
	"forumsubjecthidden":       "Subject (hidden)",
	"forumauthorhidden":        "Author (hidden)",
	"forumbodyhidden":          "This post cannot be viewed by you, probably because you have not posted in the discussion, the maximum editing time hasn't passed yet, the discussion has not started or the discussion has expired.",
	"forumsubjectdeleted":      "This post has been removed",
	"forumbodydeleted":         "The content of this post has been removed and can no longer be accessed.",
	"hiddenforumpost":          "Hidden forum post",
	"permalink":                "Permalink",
	"markread":                 "Mark read",
	"markunread":               "Mark unread",
	"parent":                   "Show parent",
	"edit":                     "Edit",
	"prune":                    "Split",
	"pruneheading":             "Split the discussion and move this post to a new discussion",
	"delete":                   "Delete",
	"reply":                    "Reply",
	"exportportfolio":          "Export to portfolio",
	"readtherest":              "Read the rest of this topic",
	"bynameondate":             "by {0} - {1}",
	"postbyuser":               "{0} by {1}",
	"discussthistopic":         "Discuss this topic",
	"viewthediscussion":        "View the discussion",
	"oldertopics":              "Older topics",
	"olderdiscussions":         "Older discussions",
	"cannotadddiscussion":      "Adding discussions to this forum requires group membership.",
	"cannotadddiscussionall":   "You do not have permission to add a new discussion topic for all participants.",
	"cannotadddiscussiongroup": "You are not able to create a discussion because you are not a member of any group.",
	"discussion":               "Discussion",
	"startedby":                "Started by",
	"group":                    "Group",
	"replies":                  "Replies",
	"unread":                   "Unread",
	"lastpost":                 "Last post",
	"markallread":              "Mark all posts in this forum read.",
	"markalldread":             "Mark all posts in this discussion read.",
	"subscribe":                "Subscribe to this discussion",
	"unsubscribe":              "Unsubscribe from this discussion",
	"subscription":             "Subscription",
	"general":                  "General",
	"topic":                    "Topic {0}",
	"highlight":                "Highlight",
	"removehighlight":          "Remove highlight",
	"markedthistopic":          "This topic is highlighted as the current topic",
	"hiddenfromstudents":       "Hidden from students",
	"notavailable":             "Not available",
	"previoussection":          "Previous section",
	"nextsection":              "Next section",
	"allsections":              "All sections",
	"previous":                 "Previous",
	"next":                     "Next",
	"page":                     "Page",
	"login":                    "Log in",
	"logout":                   "Log out",
	"loggedinas":               "You are logged in as {0}",
	"notloggedin":              "You are not logged in.",
	"invalidcourseid":          "You are trying to use an invalid course ID",
	"invalidcoursemodule":      "Invalid course module ID",
	"invalidsection":           "This section does not exist",
	"invalidforumid":           "Forum ID was incorrect",
	"servererror":              "An internal error occurred. Please try again later.",
	"accessdenied":             "You do not have permission to view this page.",
}

var englishCardinals = map[string]map[locales.PluralRule]string{
	"numwords": {
		locales.PluralRuleOne:   "{0} word",
		locales.PluralRuleOther: "{0} words",
	},
	"numreplies": {
		locales.PluralRuleOne:   "{0} reply so far",
		locales.PluralRuleOther: "{0} replies so far",
	},
	"unreadposts": {
		locales.PluralRuleOne:   "{0} unread post",
		locales.PluralRuleOther: "{0} unread posts",
	},
}

// Strings looks up translated strings of one locale.
type Strings struct {
	trans ut.Translator
	// params is the number of placeholders of each string.
	params map[string]int
}

// New loads the English strings.
func New() (*Strings, error) {
	locale := en.New()
	uni := ut.New(locale, locale)
	trans, ok := uni.GetTranslator(locale.Locale())
	if !ok {
		return nil, fmt.Errorf("no translator for %s", locale.Locale())
	}
	params := make(map[string]int, len(english))
	for key, text := range english {
		for strings.Contains(text, fmt.Sprintf("{%d}", params[key])) {
			params[key]++
		}
		if err := trans.Add(key, text, false); err != nil {
			return nil, fmt.Errorf("failed to add string %q: %w", key, err)
		}
	}
	for key, rules := range englishCardinals {
		for rule, text := range rules {
			if err := trans.AddCardinal(key, text, rule, false); err != nil {
				return nil, fmt.Errorf("failed to add plural %q: %w", key, err)
			}
		}
	}
	if err := trans.VerifyTranslations(); err != nil {
		return nil, err
	}
	return &Strings{trans: trans, params: params}, nil
}

// Get returns the string for key with its {n} placeholders filled from params.
// Unknown keys come back as "[[key]]".
func (s *Strings) Get(key string, params ...string) string {
	for len(params) < s.params[key] {
		params = append(params, "")
	}
	text, err := s.trans.T(key, params...)
	if err != nil {
		return "[[" + key + "]]"
	}
	return text
}

// Plural returns the plural form of key for n.
func (s *Strings) Plural(key string, n int) string {
	text, err := s.trans.C(key, float64(n), 0, s.trans.FmtNumber(float64(n), 0))
	if err != nil {
		return "[[" + key + "]]"
	}
	return text
}

// Date formats t as a full date with a short time, e.g.
// "Tuesday, March 5, 2024, 9:30 AM".
func (s *Strings) Date(t time.Time) string {
	return s.trans.FmtDateFull(t) + ", " + s.trans.FmtTimeShort(t)
}
