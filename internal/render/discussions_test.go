//go:build unit

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-course-format/internal/data"
)

func TestResolveListing(t *testing.T) {
	tests := []struct {
		name string
		opts ListOptions
		want listing
	}{
		{"paged plain", ListOptions{MaxDiscussions: -1, DisplayFormat: ListPlain, Page: 2, PerPage: 10}, listing{page: 2, perPage: 10, format: ListPlain}},
		{"no perpage disables paging", ListOptions{MaxDiscussions: -1, DisplayFormat: ListHeader, Page: 2, PerPage: 0}, listing{page: -1, perPage: 0, format: ListHeader}},
		{"all discussions forces header", ListOptions{MaxDiscussions: 0, DisplayFormat: ListPlain, Page: 3, PerPage: 10}, listing{page: -1, perPage: 0, format: ListHeader}},
		{"all discussions keeps header", ListOptions{MaxDiscussions: 0, DisplayFormat: ListHeader, Page: -1, PerPage: 100}, listing{page: -1, perPage: 0, format: ListHeader}},
		{"capped", ListOptions{MaxDiscussions: 3, DisplayFormat: ListPlain, Page: 1, PerPage: 100}, listing{page: -1, perPage: 3, format: ListPlain}},
		{"unknown format is plain", ListOptions{MaxDiscussions: -1, DisplayFormat: "fancy", Page: -1, PerPage: 100}, listing{page: -1, perPage: 100, format: ListPlain}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveListing(tt.opts)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.page != -1, got.paging())
		})
	}
}

func TestDefaultListOptions(t *testing.T) {
	o := DefaultListOptions()
	assert.Equal(t, -1, o.MaxDiscussions)
	assert.Equal(t, ListPlain, o.DisplayFormat)
	assert.Equal(t, int64(-1), o.CurrentGroup)
	assert.Equal(t, -1, o.GroupMode)
	assert.Equal(t, -1, o.Page)
	assert.Equal(t, 100, o.PerPage)
	assert.Nil(t, o.CM)
}

func TestReplyScopeBoundary(t *testing.T) {
	page := []*data.DiscussionSummary{{Discussion: data.Discussion{ID: 4}}, {Discussion: data.Discussion{ID: 9}}}
	paged := listing{page: 0, perPage: 2, format: ListPlain}

	assert.Nil(t, paged.replyScope(999, page))
	assert.Nil(t, paged.replyScope(1000, page), "exactly 1000 counts the whole forum")
	assert.Equal(t, []int64{4, 9}, paged.replyScope(1001, page))
	assert.Equal(t, []int64{}, paged.replyScope(5000, nil), "an empty page counts nothing")
}

func TestReplyScopeUnpaged(t *testing.T) {
	page := []*data.DiscussionSummary{{Discussion: data.Discussion{ID: 4}}}

	for _, opts := range []ListOptions{
		{MaxDiscussions: 0, DisplayFormat: ListHeader, Page: 0, PerPage: 10},
		{MaxDiscussions: 3, DisplayFormat: ListPlain, Page: 0, PerPage: 10},
		{MaxDiscussions: -1, DisplayFormat: ListPlain, Page: -1, PerPage: 10},
	} {
		l := resolveListing(opts)
		assert.False(t, l.paging())
		assert.Nil(t, l.replyScope(5000, page), "an unpaged listing counts the whole forum")
	}
}

func TestNewDiscussionPolicy(t *testing.T) {
	member := startInputs{LoggedIn: true, Enrolled: true}

	with := func(base startInputs, f func(*startInputs)) startInputs {
		f(&base)
		return base
	}

	tests := []struct {
		name string
		in   startInputs
		want startOutcome
	}{
		{"can post general", with(member, func(i *startInputs) { i.ForumType = data.ForumTypeGeneral; i.CanPost = true }), startOutcome{Label: "addanewdiscussion"}},
		{"can post news", with(member, func(i *startInputs) { i.ForumType = data.ForumTypeNews; i.CanPost = true }), startOutcome{Label: "addanewtopic"}},
		{"can post blog", with(member, func(i *startInputs) { i.ForumType = data.ForumTypeBlog; i.CanPost = true }), startOutcome{Label: "addanewtopic"}},
		{"can post qanda", with(member, func(i *startInputs) { i.ForumType = data.ForumTypeQandA; i.CanPost = true }), startOutcome{Label: "addanewquestion"}},

		{"visitor general gets button", startInputs{ForumType: data.ForumTypeGeneral}, startOutcome{Label: "addanewdiscussion"}},
		{"guest qanda gets button", startInputs{ForumType: data.ForumTypeQandA, Guest: true, LoggedIn: true}, startOutcome{Label: "addanewquestion"}},
		{"visitor news nothing", startInputs{ForumType: data.ForumTypeNews}, startOutcome{}},
		{"guest news nothing", startInputs{ForumType: data.ForumTypeNews, Guest: true, LoggedIn: true}, startOutcome{}},

		{"self enrolment offers button", startInputs{ForumType: data.ForumTypeGeneral, LoggedIn: true, SelfEnrol: true}, startOutcome{Label: "addanewdiscussion"}},
		{"self enrolment not for news", startInputs{ForumType: data.ForumTypeNews, LoggedIn: true, SelfEnrol: true}, startOutcome{}},
		{"viewing user no self enrolment button", startInputs{ForumType: data.ForumTypeGeneral, LoggedIn: true, Viewing: true, SelfEnrol: true}, startOutcome{}},

		{"member news without capability", with(member, func(i *startInputs) { i.ForumType = data.ForumTypeNews; i.StartDiscussion = true }), startOutcome{}},
		{"qanda lacking addquestion", with(member, func(i *startInputs) {
			i.ForumType = data.ForumTypeQandA
			i.StartDiscussion = true
			i.GroupMode = data.SeparateGroups
		}), startOutcome{}},
		{"general lacking startdiscussion", with(member, func(i *startInputs) {
			i.ForumType = data.ForumTypeGeneral
			i.AddQuestion = true
			i.GroupMode = data.SeparateGroups
		}), startOutcome{}},

		{"no groups no message", with(member, func(i *startInputs) { i.ForumType = data.ForumTypeGeneral; i.StartDiscussion = true }), startOutcome{}},
		{"no group without canposttomygroups", with(member, func(i *startInputs) {
			i.ForumType = data.ForumTypeGeneral
			i.StartDiscussion = true
			i.GroupMode = data.SeparateGroups
		}), startOutcome{Notice: "cannotadddiscussiongroup"}},
		{"no group with canposttomygroups", with(member, func(i *startInputs) {
			i.ForumType = data.ForumTypeGeneral
			i.StartDiscussion = true
			i.GroupMode = data.VisibleGroups
			i.CanPostToMyGroups = true
		}), startOutcome{Notice: "cannotadddiscussionall"}},
		{"qanda not a member of current group", with(member, func(i *startInputs) {
			i.ForumType = data.ForumTypeQandA
			i.AddQuestion = true
			i.GroupMode = data.SeparateGroups
			i.CurrentGroup = 5
		}), startOutcome{Notice: "cannotadddiscussion"}},
		{"member of current group", with(member, func(i *startInputs) {
			i.ForumType = data.ForumTypeGeneral
			i.StartDiscussion = true
			i.GroupMode = data.SeparateGroups
			i.CurrentGroup = 5
			i.GroupMember = true
		}), startOutcome{}},
		{"access all groups", with(member, func(i *startInputs) {
			i.ForumType = data.ForumTypeGeneral
			i.StartDiscussion = true
			i.GroupMode = data.SeparateGroups
			i.AccessAllGroups = true
		}), startOutcome{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newDiscussionPolicy(tt.in))
		})
	}
}

func TestEmptyKey(t *testing.T) {
	assert.Equal(t, "nonews", emptyKey(data.ForumTypeNews))
	assert.Equal(t, "noquestions", emptyKey(data.ForumTypeQandA))
	assert.Equal(t, "nodiscussions", emptyKey(data.ForumTypeGeneral))
}
