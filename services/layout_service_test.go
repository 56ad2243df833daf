package services

import (
	"testing"

	"github.com/atelierlumen/gallerybackend/apperrors"
	"github.com/atelierlumen/gallerybackend/repository"
)

func newLayoutFixture(t *testing.T) (*LayoutService, repository.ImageRepositoryInterface, repository.LayoutRepositoryInterface) {
	t.Helper()
	db := newTestDB(t)
	images := repository.NewImageRepository(db)
	layouts := repository.NewLayoutRepository(db)
	return NewLayoutService(images, layouts), images, layouts
}

func TestAssignLayoutValidation(t *testing.T) {
	svc, images, _ := newLayoutFixture(t)
	a := seedInstance(t, images, "overview", intPtr(0))
	b := seedInstance(t, images, "overview", intPtr(1))

	tests := []struct {
		name       string
		ids        []uint
		layoutType string
		context    string
	}{
		{"unknown layout type", []uint{a.ID, b.ID}, "mosaic-grid", "overview"},
		{"arity too low", []uint{a.ID}, "dual-horizontal", "overview"},
		{"arity too high", []uint{a.ID, b.ID}, "fullscreen-hero", "overview"},
		{"invalid context", []uint{a.ID, b.ID}, "dual-horizontal", "archive"},
		{"empty ids", nil, "dual-horizontal", "overview"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AssignLayout(tt.ids, tt.layoutType, tt.context)
			if !apperrors.IsValidation(err) {
				t.Errorf("AssignLayout() error = %v, want validation error", err)
			}
		})
	}
}

func TestAssignLayoutMissingInstance(t *testing.T) {
	svc, images, _ := newLayoutFixture(t)
	a := seedInstance(t, images, "overview", intPtr(0))

	_, err := svc.AssignLayout([]uint{a.ID, 9999}, "dual-horizontal", "overview")
	if !apperrors.IsNotFound(err) {
		t.Errorf("AssignLayout() error = %v, want not found", err)
	}
}

func TestAssignLayoutWrongContext(t *testing.T) {
	svc, images, _ := newLayoutFixture(t)
	a := seedInstance(t, images, "overview", intPtr(0))
	b := seedInstance(t, images, "events", intPtr(1))

	// b lives in a different context, so the lookup comes up short
	_, err := svc.AssignLayout([]uint{a.ID, b.ID}, "dual-horizontal", "overview")
	if !apperrors.IsNotFound(err) {
		t.Errorf("AssignLayout() error = %v, want not found", err)
	}
}

func TestAssignLayoutRequiresConsecutiveOrder(t *testing.T) {
	svc, images, _ := newLayoutFixture(t)

	t.Run("gap in display order", func(t *testing.T) {
		a := seedInstance(t, images, "overview", intPtr(2))
		b := seedInstance(t, images, "overview", intPtr(4))
		_, err := svc.AssignLayout([]uint{a.ID, b.ID}, "dual-horizontal", "overview")
		if !apperrors.IsConflict(err) {
			t.Errorf("AssignLayout() error = %v, want conflict", err)
		}
	})

	t.Run("unordered instance", func(t *testing.T) {
		a := seedInstance(t, images, "events", intPtr(0))
		b := seedInstance(t, images, "events", nil)
		_, err := svc.AssignLayout([]uint{a.ID, b.ID}, "dual-horizontal", "events")
		if !apperrors.IsConflict(err) {
			t.Errorf("AssignLayout() error = %v, want conflict", err)
		}
	})

	t.Run("consecutive run succeeds", func(t *testing.T) {
		a := seedInstance(t, images, "personal", intPtr(2))
		b := seedInstance(t, images, "personal", intPtr(3))
		result, err := svc.AssignLayout([]uint{a.ID, b.ID}, "dual-horizontal", "personal")
		if err != nil {
			t.Fatalf("AssignLayout() error = %v", err)
		}
		if result.GroupID == 0 {
			t.Error("AssignLayout() returned zero group id")
		}
		if len(result.Instances) != 2 {
			t.Fatalf("AssignLayout() returned %d instances, want 2", len(result.Instances))
		}
		if len(result.Warnings) != 0 {
			t.Errorf("AssignLayout() warnings = %v, want none", result.Warnings)
		}
	})
}

func TestAssignLayoutPositions(t *testing.T) {
	svc, images, layouts := newLayoutFixture(t)
	a := seedInstance(t, images, "overview", intPtr(1))
	b := seedInstance(t, images, "overview", intPtr(2))
	c := seedInstance(t, images, "overview", intPtr(0))

	// input order, not display order, fixes positions within the group
	result, err := svc.AssignLayout([]uint{b.ID, a.ID}, "dual-horizontal", "overview")
	if err != nil {
		t.Fatalf("AssignLayout() error = %v", err)
	}

	mb, err := layouts.GetMembership(b.ID)
	if err != nil {
		t.Fatalf("GetMembership(b) error = %v", err)
	}
	if mb.PositionInGroup == nil || *mb.PositionInGroup != 0 {
		t.Errorf("b position = %v, want 0", mb.PositionInGroup)
	}
	ma, err := layouts.GetMembership(a.ID)
	if err != nil {
		t.Fatalf("GetMembership(a) error = %v", err)
	}
	if ma.PositionInGroup == nil || *ma.PositionInGroup != 1 {
		t.Errorf("a position = %v, want 1", ma.PositionInGroup)
	}

	group, err := layouts.GetGroupByID(result.GroupID)
	if err != nil {
		t.Fatalf("GetGroupByID() error = %v", err)
	}
	// group inherits the lowest member's display order
	if group.GroupDisplayOrder != 1 {
		t.Errorf("group display order = %d, want 1", group.GroupDisplayOrder)
	}

	// a single-image layout carries no position
	single, err := svc.AssignLayout([]uint{c.ID}, "fullscreen-hero", "overview")
	if err != nil {
		t.Fatalf("AssignLayout(single) error = %v", err)
	}
	mc, err := layouts.GetMembership(c.ID)
	if err != nil {
		t.Fatalf("GetMembership(c) error = %v", err)
	}
	if mc.PositionInGroup != nil {
		t.Errorf("single-image position = %v, want nil", *mc.PositionInGroup)
	}
	if single.GroupID == result.GroupID {
		t.Error("single-image layout reused an existing group id")
	}
}

func TestAssignLayoutRetiresPriorGroups(t *testing.T) {
	svc, images, layouts := newLayoutFixture(t)
	a := seedInstance(t, images, "overview", intPtr(0))
	b := seedInstance(t, images, "overview", intPtr(1))
	c := seedInstance(t, images, "overview", intPtr(2))

	first, err := svc.AssignLayout([]uint{a.ID, b.ID}, "dual-horizontal", "overview")
	if err != nil {
		t.Fatalf("first AssignLayout() error = %v", err)
	}

	// reassigning b pulls it out of the first group, which retires whole
	second, err := svc.AssignLayout([]uint{b.ID, c.ID}, "asymmetric-left", "overview")
	if err != nil {
		t.Fatalf("second AssignLayout() error = %v", err)
	}
	if len(second.Warnings) != 1 {
		t.Fatalf("second AssignLayout() warnings = %v, want exactly one", second.Warnings)
	}

	if _, err := layouts.GetGroupByID(first.GroupID); err == nil {
		t.Error("retired group still exists")
	}
	if _, err := layouts.GetMembership(a.ID); err == nil {
		t.Error("a still holds a membership after its group retired")
	}
}

func TestRemoveLayoutFor(t *testing.T) {
	svc, images, layouts := newLayoutFixture(t)
	a := seedInstance(t, images, "overview", intPtr(0))
	b := seedInstance(t, images, "overview", intPtr(1))

	result, err := svc.AssignLayout([]uint{a.ID, b.ID}, "dual-horizontal", "overview")
	if err != nil {
		t.Fatalf("AssignLayout() error = %v", err)
	}

	removed, err := svc.RemoveLayoutFor(a.ID)
	if err != nil {
		t.Fatalf("RemoveLayoutFor() error = %v", err)
	}
	if !removed {
		t.Error("RemoveLayoutFor() = false, want true")
	}
	if _, err := layouts.GetGroupByID(result.GroupID); err == nil {
		t.Error("group survived RemoveLayoutFor")
	}

	// removing again is a no-op
	removed, err = svc.RemoveLayoutFor(a.ID)
	if err != nil {
		t.Fatalf("second RemoveLayoutFor() error = %v", err)
	}
	if removed {
		t.Error("second RemoveLayoutFor() = true, want false")
	}
}
