package auth

import (
	"fmt"
	"strconv"
)

// Capabilities checked by the course page and the forum renderers.
const (
	CapSetCurrentSection    = "moodle/course:setcurrentsection"
	CapViewHiddenSections   = "moodle/course:viewhiddensections"
	CapViewHiddenActivities = "moodle/course:viewhiddenactivities"
	CapManageActivities     = "moodle/course:manageactivities"
	CapCourseView           = "moodle/course:view"
	CapAccessAllGroups      = "moodle/site:accessallgroups"
	CapViewDiscussion       = "mod/forum:viewdiscussion"
	CapViewQandAWithoutPost = "mod/forum:viewqandawithoutposting"
	CapViewHiddenTimedPosts = "mod/forum:viewhiddentimedposts"
	CapStartDiscussion      = "mod/forum:startdiscussion"
	CapAddNews              = "mod/forum:addnews"
	CapAddQuestion          = "mod/forum:addquestion"
	CapReplyPost            = "mod/forum:replypost"
	CapReplyNews            = "mod/forum:replynews"
	CapEditAnyPost          = "mod/forum:editanypost"
	CapDeleteOwnPost        = "mod/forum:deleteownpost"
	CapDeleteAnyPost        = "mod/forum:deleteanypost"
	CapSplitDiscussions     = "mod/forum:splitdiscussions"
	CapExportPost           = "mod/forum:exportpost"
	CapExportOwnPost        = "mod/forum:exportownpost"
	CapCanPostToMyGroups    = "mod/forum:canposttomygroups"
)

const (
	capAct             = "cap"
	siteDomain         = "site"
	subjectAnonymous   = "anonymous"
	roleAuthenticated  = "authenticated"
	roleStudent        = "student"
	roleTeacher        = "teacher"
	roleEditingTeacher = "editingteacher"
	roleManager        = "manager"
	courseDomainPrefix = "course/"
	userSubjectPrefix  = "user:"
	anyDomain          = "*"
)

// Enforcer is the part of a Casbin enforcer the permission checks need.
type Enforcer interface {
	Enforce(rvals ...interface{}) (bool, error)
	HasRoleForUser(name string, role string, domain ...string) (bool, error)
}

// Subject returns the policy subject of a user; zero is anonymous.
func Subject(userID int64) string {
	if userID == 0 {
		return subjectAnonymous
	}
	return userSubjectPrefix + strconv.FormatInt(userID, 10)
}

// CourseDomain returns the policy domain of a course.
func CourseDomain(courseID int64) string {
	return courseDomainPrefix + strconv.FormatInt(courseID, 10)
}

// Permissions answers capability and enrolment questions for course users.
type Permissions struct {
	enforcer Enforcer
}

// NewPermissions creates Permissions backed by e.
func NewPermissions(e Enforcer) *Permissions {
	return &Permissions{enforcer: e}
}

// Has reports whether the user holds capability in the course.
func (p *Permissions) Has(userID, courseID int64, capability string) (bool, error) {
	ok, err := p.enforcer.Enforce(Subject(userID), CourseDomain(courseID), capability, capAct)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", capability, err)
	}
	return ok, nil
}

// CanAccessRoute reports whether the subject may call method on path.
func (p *Permissions) CanAccessRoute(subject, path, method string) (bool, error) {
	return p.enforcer.Enforce(subject, siteDomain, path, method)
}

// IsEnrolled reports whether the user holds a course role in the course.
func (p *Permissions) IsEnrolled(userID, courseID int64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	sub, dom := Subject(userID), CourseDomain(courseID)
	for _, role := range []string{roleStudent, roleTeacher, roleEditingTeacher} {
		ok, err := p.enforcer.HasRoleForUser(sub, role, dom)
		if err != nil {
			return false, fmt.Errorf("failed to check enrolment: %w", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// IsViewing reports whether the user may view the course without being
// enrolled in it.
func (p *Permissions) IsViewing(userID, courseID int64) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	return p.Has(userID, courseID, CapCourseView)
}
