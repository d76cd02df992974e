package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CourseRepository handles database operations for courses, sections and
// course modules.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, fullname, shortname, marker, groupmode, groupmodeforce, selfenrol, timemodified`

// GetCourse retrieves a course by its ID.
func (r *CourseRepository) GetCourse(ctx context.Context, id int64) (*Course, error) {
	var course Course
	query := r.db.Rebind(`SELECT ` + courseColumns + ` FROM courses WHERE id = ?`)
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("course %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

// ListCourses retrieves all courses ordered by ID.
func (r *CourseRepository) ListCourses(ctx context.Context) ([]*Course, error) {
	var courses []*Course
	if err := r.db.SelectContext(ctx, &courses, `SELECT `+courseColumns+` FROM courses ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

// SetMarker stores the highlighted section of a course.
func (r *CourseRepository) SetMarker(ctx context.Context, courseID int64, marker int) error {
	query := r.db.Rebind(`UPDATE courses SET marker = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, marker, courseID)
	if err != nil {
		return fmt.Errorf("failed to set course marker: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}
	return nil
}

// Sections retrieves the sections of a course ordered by their ordinal.
func (r *CourseRepository) Sections(ctx context.Context, courseID int64) ([]*Section, error) {
	var sections []*Section
	query := r.db.Rebind(`SELECT id, course_id, section, name, summary, visible FROM course_sections WHERE course_id = ? ORDER BY section`)
	if err := r.db.SelectContext(ctx, &sections, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to get course sections: %w", err)
	}
	return sections, nil
}

// CreateSectionsIfMissing makes sure sections 0..upTo exist for the course and
// returns how many were created.
func (r *CourseRepository) CreateSectionsIfMissing(ctx context.Context, courseID int64, upTo int) (int, error) {
	var existing []int
	query := r.db.Rebind(`SELECT section FROM course_sections WHERE course_id = ? AND section <= ?`)
	if err := r.db.SelectContext(ctx, &existing, query, courseID, upTo); err != nil {
		return 0, fmt.Errorf("failed to read course sections: %w", err)
	}
	have := make(map[int]bool, len(existing))
	for _, s := range existing {
		have[s] = true
	}

	created := 0
	insert := r.db.Rebind(`INSERT INTO course_sections (course_id, section, name, summary, visible) VALUES (?, ?, '', '', 1)`)
	for s := 0; s <= upTo; s++ {
		if have[s] {
			continue
		}
		if _, err := r.db.ExecContext(ctx, insert, courseID, s); err != nil {
			// A concurrent request may have created it; the unique key keeps one row.
			var n int
			check := r.db.Rebind(`SELECT COUNT(*) FROM course_sections WHERE course_id = ? AND section = ?`)
			if cerr := r.db.GetContext(ctx, &n, check, courseID, s); cerr != nil || n == 0 {
				return created, fmt.Errorf("failed to create section %d: %w", s, err)
			}
			continue
		}
		created++
	}
	return created, nil
}

const courseModuleSelect = `SELECT cm.id, cm.course_id, cm.module, cm.instance, cm.section, cm.visible, cm.groupmode, cm.groupingid,
	COALESCE(f.name, '') AS name
	FROM course_modules cm
	LEFT JOIN forums f ON cm.module = 'forum' AND f.id = cm.instance`

// CourseModules retrieves the activities of a course in display order.
func (r *CourseRepository) CourseModules(ctx context.Context, courseID int64) ([]*CourseModule, error) {
	var cms []*CourseModule
	query := r.db.Rebind(courseModuleSelect + ` WHERE cm.course_id = ? ORDER BY cm.section, cm.id`)
	if err := r.db.SelectContext(ctx, &cms, query, courseID); err != nil {
		return nil, fmt.Errorf("failed to get course modules: %w", err)
	}
	return cms, nil
}

// CourseModuleByInstance finds the course module of an activity instance.
func (r *CourseRepository) CourseModuleByInstance(ctx context.Context, module string, instance int64) (*CourseModule, error) {
	var cm CourseModule
	query := r.db.Rebind(courseModuleSelect + ` WHERE cm.module = ? AND cm.instance = ?`)
	if err := r.db.GetContext(ctx, &cm, query, module, instance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d course module: %w", module, instance, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get course module: %w", err)
	}
	return &cm, nil
}
