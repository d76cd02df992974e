package service

import (
	"context"
	"fmt"
	"go-course-format/internal/auth"
	"go-course-format/internal/data"
)

// CourseRepository defines the database operations on courses and sections.
type CourseRepository interface {
	GetCourse(ctx context.Context, id int64) (*data.Course, error)
	ListCourses(ctx context.Context) ([]*data.Course, error)
	SetMarker(ctx context.Context, courseID int64, marker int) error
	Sections(ctx context.Context, courseID int64) ([]*data.Section, error)
	CreateSectionsIfMissing(ctx context.Context, courseID int64, upTo int) (int, error)
	CourseModules(ctx context.Context, courseID int64) ([]*data.CourseModule, error)
	CourseModuleByInstance(ctx context.Context, module string, instance int64) (*data.CourseModule, error)
}

// Capabilities answers capability and enrolment questions.
type Capabilities interface {
	Has(userID, courseID int64, capability string) (bool, error)
	IsEnrolled(userID, courseID int64) (bool, error)
	IsViewing(userID, courseID int64) (bool, error)
}

var _ Capabilities = (*auth.Permissions)(nil)

// CourseServicer defines the interface for interacting with courses.
type CourseServicer interface {
	GetCourse(ctx context.Context, id int64) (*data.Course, error)
	ListCourses(ctx context.Context) ([]*data.Course, error)
	CanSetMarker(ctx context.Context, course *data.Course, viewer Viewer) (bool, error)
	SetMarker(ctx context.Context, course *data.Course, marker int) error
	EnsureSections(ctx context.Context, course *data.Course, upTo int) error
	Sections(ctx context.Context, course *data.Course, viewer Viewer) ([]*data.Section, error)
	SectionModules(ctx context.Context, course *data.Course, viewer Viewer) (map[int][]*data.CourseModule, error)
}

// CourseService provides the course page operations.
type CourseService struct {
	repo CourseRepository
	caps Capabilities
}

// NewCourseService creates a new CourseService.
func NewCourseService(repo CourseRepository, caps Capabilities) *CourseService {
	return &CourseService{repo: repo, caps: caps}
}

// GetCourse retrieves a course by ID.
func (s *CourseService) GetCourse(ctx context.Context, id int64) (*data.Course, error) {
	return s.repo.GetCourse(ctx, id)
}

// ListCourses retrieves every course.
func (s *CourseService) ListCourses(ctx context.Context) ([]*data.Course, error) {
	return s.repo.ListCourses(ctx)
}

// CanSetMarker reports whether the viewer may highlight a section of the course.
func (s *CourseService) CanSetMarker(ctx context.Context, course *data.Course, viewer Viewer) (bool, error) {
	if !viewer.Member() {
		return false, nil
	}
	return s.caps.Has(viewer.ID(), course.ID, auth.CapSetCurrentSection)
}

// SetMarker persists the highlighted section and updates course.
func (s *CourseService) SetMarker(ctx context.Context, course *data.Course, marker int) error {
	if marker < 0 {
		return fmt.Errorf("invalid marker %d", marker)
	}
	if err := s.repo.SetMarker(ctx, course.ID, marker); err != nil {
		return err
	}
	course.Marker = marker
	return nil
}

// EnsureSections creates the missing sections 0..upTo of the course.
func (s *CourseService) EnsureSections(ctx context.Context, course *data.Course, upTo int) error {
	_, err := s.repo.CreateSectionsIfMissing(ctx, course.ID, upTo)
	return err
}

// Sections returns the sections of the course with UserVisible set for viewer.
func (s *CourseService) Sections(ctx context.Context, course *data.Course, viewer Viewer) ([]*data.Section, error) {
	sections, err := s.repo.Sections(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	viewHidden, err := s.caps.Has(viewer.ID(), course.ID, auth.CapViewHiddenSections)
	if err != nil {
		return nil, err
	}
	for _, sec := range sections {
		sec.UserVisible = sec.Visible || viewHidden
	}
	return sections, nil
}

// SectionModules groups the activities of the course by section, with
// UserVisible set for viewer.
func (s *CourseService) SectionModules(ctx context.Context, course *data.Course, viewer Viewer) (map[int][]*data.CourseModule, error) {
	cms, err := s.repo.CourseModules(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	viewHidden, err := s.caps.Has(viewer.ID(), course.ID, auth.CapViewHiddenActivities)
	if err != nil {
		return nil, err
	}
	bySection := make(map[int][]*data.CourseModule)
	for _, cm := range cms {
		cm.UserVisible = cm.Visible || viewHidden
		bySection[cm.Section] = append(bySection[cm.Section], cm)
	}
	return bySection, nil
}
