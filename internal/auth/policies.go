package auth

import (
	"fmt"
	"go-course-format/internal/logger"

	"github.com/casbin/casbin/v2"
)

// Course roles that may be assigned with Enrol.
const (
	RoleStudent        = roleStudent
	RoleTeacher        = roleTeacher
	RoleEditingTeacher = roleEditingTeacher
	RoleManager        = roleManager
)

var (
	studentCaps = []string{
		CapCourseView, CapViewDiscussion, CapStartDiscussion, CapAddQuestion,
		CapReplyPost, CapDeleteOwnPost, CapExportOwnPost,
	}
	teacherCaps = append([]string{
		CapViewHiddenSections, CapViewHiddenActivities, CapViewQandAWithoutPost,
		CapViewHiddenTimedPosts, CapAccessAllGroups, CapAddNews, CapReplyNews,
		CapEditAnyPost, CapDeleteAnyPost, CapSplitDiscussions, CapExportPost,
	}, studentCaps...)
	editingTeacherCaps = append([]string{
		CapSetCurrentSection, CapManageActivities,
	}, teacherCaps...)
)

// SeedDefaultPolicies ensures that the application has a baseline set of
// route and capability rules. It only adds what is missing, so it is safe to
// run on every start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	policies := [][]interface{}{
		{subjectAnonymous, siteDomain, "/", "GET"},
		{subjectAnonymous, siteDomain, "/course/view.php", "GET"},
		{subjectAnonymous, siteDomain, "/mod/forum/view.php", "GET"},
		{subjectAnonymous, siteDomain, "/auth/login", "GET"},
		{subjectAnonymous, siteDomain, "/auth/callback", "GET"},
		{roleAuthenticated, siteDomain, "/auth/logout", "*"},

		// Guests may read forums of courses open to them.
		{subjectAnonymous, anyDomain, CapViewDiscussion, capAct},
		{roleManager, anyDomain, "*", capAct},
	}
	for _, role := range []struct {
		name string
		caps []string
	}{
		{roleStudent, studentCaps},
		{roleTeacher, teacherCaps},
		{roleEditingTeacher, editingTeacherCaps},
	} {
		for _, c := range role.caps {
			policies = append(policies, []interface{}{role.name, anyDomain, c, capAct})
		}
	}
	for _, p := range policies {
		if has, _ := e.HasPolicy(p...); !has {
			if _, err := e.AddPolicy(p...); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	// Every role can do what anonymous visitors can.
	for _, g := range [][]interface{}{
		{roleAuthenticated, subjectAnonymous, anyDomain},
		{roleManager, roleAuthenticated, anyDomain},
	} {
		if has, _ := e.HasGroupingPolicy(g...); !has {
			if _, err := e.AddGroupingPolicy(g...); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add role %v", g))
			}
		}
	}
	log.Info("Policy seeding complete.")
}

// GrantAuthenticated gives a logged-in user the site-wide authenticated role.
func GrantAuthenticated(e casbin.IEnforcer, userID int64) error {
	return addRole(e, Subject(userID), roleAuthenticated, anyDomain)
}

// Enrol assigns a course role to a user.
func Enrol(e casbin.IEnforcer, userID, courseID int64, role string) error {
	switch role {
	case roleStudent, roleTeacher, roleEditingTeacher:
		return addRole(e, Subject(userID), role, CourseDomain(courseID))
	case roleManager:
		return addRole(e, Subject(userID), role, anyDomain)
	default:
		return fmt.Errorf("unknown course role %q", role)
	}
}

func addRole(e casbin.IEnforcer, sub, role, dom string) error {
	has, err := e.HasGroupingPolicy(sub, role, dom)
	if err != nil {
		return fmt.Errorf("failed to read role %s of %s: %w", role, sub, err)
	}
	if has {
		return nil
	}
	if _, err := e.AddGroupingPolicy(sub, role, dom); err != nil {
		return fmt.Errorf("failed to grant role %s to %s: %w", role, sub, err)
	}
	return nil
}
