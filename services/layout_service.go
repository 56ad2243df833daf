package services

import (
	"fmt"
	"log"
	"sort"

	"github.com/atelierlumen/gallerybackend/apperrors"
	"github.com/atelierlumen/gallerybackend/models"
	"github.com/atelierlumen/gallerybackend/repository"
)

// LayoutService validates candidate image sets against layout arity and
// consecutiveness constraints and manages layout group lifecycle.
type LayoutService struct {
	Images  repository.ImageRepositoryInterface
	Layouts repository.LayoutRepositoryInterface
}

func NewLayoutService(images repository.ImageRepositoryInterface, layouts repository.LayoutRepositoryInterface) *LayoutService {
	return &LayoutService{Images: images, Layouts: layouts}
}

// AssignResult is the outcome of a layout assignment.
type AssignResult struct {
	Instances []models.ImageInstance
	GroupID   uint
	// Warnings surfaces side effects the caller must know about, such
	// as previously assigned layout groups that were retired to make
	// room for this one.
	Warnings []string
}

// AssignLayout assigns the named instances, in the given order, to a
// new layout group of the given type within context.
//
// The instances must all exist in the context, match the layout type's
// required image count, and hold strictly consecutive non-null display
// orders. Any prior layout membership of a candidate retires that whole
// group first; each retirement is reported as a warning.
func (s *LayoutService) AssignLayout(instanceIDs []uint, layoutType, context string) (*AssignResult, error) {
	if len(instanceIDs) == 0 || layoutType == "" || context == "" {
		return nil, apperrors.Validationf("imageIds, layoutType and context required")
	}
	if !models.IsValidContext(context) {
		return nil, apperrors.Validationf("invalid context, must be one of: %s", models.ContextList())
	}

	lt, err := models.GetLayoutType(layoutType)
	if err != nil {
		return nil, apperrors.Validationf("invalid layoutType %q", layoutType)
	}
	if len(instanceIDs) != lt.ImageCount {
		return nil, apperrors.Validationf("layout %s requires exactly %d images, got %d",
			layoutType, lt.ImageCount, len(instanceIDs))
	}

	selected, err := s.Images.ListInstancesByIDsInContext(instanceIDs, context)
	if err != nil {
		return nil, err
	}
	if len(selected) != len(instanceIDs) {
		return nil, apperrors.NotFoundf("one or more images not found in context %s", context)
	}

	warnings, err := s.retirePriorGroups(instanceIDs, context)
	if err != nil {
		return nil, err
	}

	ordered := make([]models.ImageInstance, len(selected))
	copy(ordered, selected)
	sort.SliceStable(ordered, func(i, j int) bool {
		oi, oj := ordered[i].DisplayOrder, ordered[j].DisplayOrder
		switch {
		case oi == nil && oj == nil:
			return ordered[i].CreatedAt < ordered[j].CreatedAt
		case oi == nil:
			return false // nulls last
		case oj == nil:
			return true
		case *oi != *oj:
			return *oi < *oj
		default:
			return ordered[i].CreatedAt < ordered[j].CreatedAt
		}
	})

	if err := checkConsecutive(ordered); err != nil {
		return nil, err
	}

	groupDisplayOrder := 0
	if ordered[0].DisplayOrder != nil {
		groupDisplayOrder = *ordered[0].DisplayOrder
	}

	group := &models.LayoutGroup{
		Context:           context,
		LayoutType:        layoutType,
		GroupDisplayOrder: groupDisplayOrder,
	}

	members := make([]models.ImageLayout, len(instanceIDs))
	for i, id := range instanceIDs {
		members[i] = models.ImageLayout{ImageInstanceID: id}
		if lt.ImageCount > 1 {
			pos := i
			members[i].PositionInGroup = &pos
		}
	}

	if err := s.Layouts.CreateGroupWithMembers(group, members); err != nil {
		return nil, err
	}

	refreshed, err := s.Images.ListInstancesByIDsInContext(instanceIDs, context)
	if err != nil {
		return nil, err
	}
	sortByDisplayOrder(refreshed)

	return &AssignResult{Instances: refreshed, GroupID: group.ID, Warnings: warnings}, nil
}

// RemoveLayoutFor retires the layout group an instance belongs to, if
// any. Returns whether a group was retired.
func (s *LayoutService) RemoveLayoutFor(instanceID uint) (bool, error) {
	membership, err := s.Layouts.GetMembership(instanceID)
	if err != nil {
		if notFound(err) {
			return false, nil
		}
		return false, err
	}
	if err := s.Layouts.RetireGroup(membership.LayoutGroupID); err != nil {
		return false, err
	}
	return true, nil
}

// retirePriorGroups breaks every layout group any candidate instance
// already belongs to. Groups retire entirely, never partially.
func (s *LayoutService) retirePriorGroups(instanceIDs []uint, context string) ([]string, error) {
	memberships, err := s.Layouts.ListMembershipsByInstanceIDs(instanceIDs)
	if err != nil {
		return nil, err
	}

	seen := map[uint]bool{}
	var warnings []string
	for _, m := range memberships {
		if seen[m.LayoutGroupID] {
			continue
		}
		seen[m.LayoutGroupID] = true
		if err := s.Layouts.RetireGroup(m.LayoutGroupID); err != nil {
			return nil, err
		}
		log.Printf("Retired layout group %d in context %s to make room for new assignment", m.LayoutGroupID, context)
		warnings = append(warnings, fmt.Sprintf("existing layout group %d was removed", m.LayoutGroupID))
	}
	return warnings, nil
}

// checkConsecutive enforces the contiguous visual run constraint: every
// candidate must have a display order, and adjacent orders must differ
// by exactly 1.
func checkConsecutive(ordered []models.ImageInstance) error {
	for _, inst := range ordered {
		if inst.DisplayOrder == nil {
			return apperrors.Conflictf("all selected images must have display order set")
		}
	}
	for i := 1; i < len(ordered); i++ {
		if *ordered[i].DisplayOrder-*ordered[i-1].DisplayOrder != 1 {
			return apperrors.Conflictf("selected images must be consecutive in display order, no gaps allowed")
		}
	}
	return nil
}

func sortByDisplayOrder(instances []models.ImageInstance) {
	sort.SliceStable(instances, func(i, j int) bool {
		oi, oj := instances[i].DisplayOrder, instances[j].DisplayOrder
		switch {
		case oi == nil && oj == nil:
			return instances[i].CreatedAt < instances[j].CreatedAt
		case oi == nil:
			return false
		case oj == nil:
			return true
		default:
			return *oi < *oj
		}
	})
}
