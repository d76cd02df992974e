//go:build unit

package service

import (
	"context"
	"errors"
	"go-course-format/internal/auth"
	"go-course-format/internal/data"
	"testing"
)

func TestCourseService_CanSetMarker(t *testing.T) {
	course := &data.Course{ID: 2}
	tests := []struct {
		name    string
		viewer  Viewer
		granted bool
		want    bool
	}{
		{"editing teacher", member, true, true},
		{"student", member, false, false},
		{"guest", guest, true, false},
		{"visitor", visitor, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := &mockCapabilities{granted: map[string]bool{auth.CapSetCurrentSection: tt.granted}}
			svc := NewCourseService(&mockCourseRepository{}, caps)
			got, err := svc.CanSetMarker(context.Background(), course, tt.viewer)
			if err != nil {
				t.Fatalf("CanSetMarker failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanSetMarker = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCourseService_SetMarker(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		repo := &mockCourseRepository{}
		svc := NewCourseService(repo, &mockCapabilities{})
		course := &data.Course{ID: 2, Marker: 1}
		if err := svc.SetMarker(context.Background(), course, 0); err != nil {
			t.Fatalf("SetMarker failed: %v", err)
		}
		if !repo.setMarkerCalled || repo.lastMarker != 0 {
			t.Errorf("expected marker 0 to be stored, got called=%v marker=%d", repo.setMarkerCalled, repo.lastMarker)
		}
		if course.Marker != 0 {
			t.Errorf("expected course marker to be updated, got %d", course.Marker)
		}
	})

	t.Run("negative marker", func(t *testing.T) {
		repo := &mockCourseRepository{}
		svc := NewCourseService(repo, &mockCapabilities{})
		if err := svc.SetMarker(context.Background(), &data.Course{ID: 2}, -1); err == nil {
			t.Fatal("expected an error for a negative marker")
		}
		if repo.setMarkerCalled {
			t.Error("repository should not be called for a negative marker")
		}
	})

	t.Run("repository error", func(t *testing.T) {
		repo := &mockCourseRepository{errToReturn: data.ErrNotFound}
		svc := NewCourseService(repo, &mockCapabilities{})
		course := &data.Course{ID: 2, Marker: 1}
		err := svc.SetMarker(context.Background(), course, 3)
		if !errors.Is(err, data.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if course.Marker != 1 {
			t.Errorf("course marker changed on failure: %d", course.Marker)
		}
	})
}

func TestCourseService_Sections(t *testing.T) {
	newRepo := func() *mockCourseRepository {
		return &mockCourseRepository{
			sections: []*data.Section{
				{Section: 0, Visible: true},
				{Section: 1, Visible: false},
			},
			cms: []*data.CourseModule{
				{ID: 1, Section: 0, Visible: true},
				{ID: 2, Section: 1, Visible: false},
				{ID: 3, Section: 1, Visible: true},
			},
		}
	}

	t.Run("student", func(t *testing.T) {
		svc := NewCourseService(newRepo(), &mockCapabilities{granted: map[string]bool{}})
		sections, err := svc.Sections(context.Background(), &data.Course{ID: 2}, member)
		if err != nil {
			t.Fatalf("Sections failed: %v", err)
		}
		if !sections[0].UserVisible || sections[1].UserVisible {
			t.Errorf("unexpected section visibility: %v %v", sections[0].UserVisible, sections[1].UserVisible)
		}

		modules, err := svc.SectionModules(context.Background(), &data.Course{ID: 2}, member)
		if err != nil {
			t.Fatalf("SectionModules failed: %v", err)
		}
		if len(modules[0]) != 1 || len(modules[1]) != 2 {
			t.Fatalf("unexpected grouping: %v", modules)
		}
		if modules[1][0].UserVisible || !modules[1][1].UserVisible {
			t.Error("hidden module should only be hidden from the student")
		}
	})

	t.Run("teacher", func(t *testing.T) {
		caps := &mockCapabilities{granted: map[string]bool{
			auth.CapViewHiddenSections:   true,
			auth.CapViewHiddenActivities: true,
		}}
		svc := NewCourseService(newRepo(), caps)
		sections, err := svc.Sections(context.Background(), &data.Course{ID: 2}, member)
		if err != nil {
			t.Fatalf("Sections failed: %v", err)
		}
		if !sections[1].UserVisible {
			t.Error("teacher should see the hidden section")
		}
		modules, _ := svc.SectionModules(context.Background(), &data.Course{ID: 2}, member)
		if !modules[1][0].UserVisible {
			t.Error("teacher should see the hidden module")
		}
	})

	t.Run("ensure sections", func(t *testing.T) {
		repo := newRepo()
		svc := NewCourseService(repo, &mockCapabilities{})
		if err := svc.EnsureSections(context.Background(), &data.Course{ID: 2}, 2); err != nil {
			t.Fatalf("EnsureSections failed: %v", err)
		}
		if repo.ensuredUpTo != 2 {
			t.Errorf("expected sections up to 2, got %d", repo.ensuredUpTo)
		}
	})
}
