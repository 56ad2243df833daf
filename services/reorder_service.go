package services

import (
	"github.com/atelierlumen/gallerybackend/apperrors"
	"github.com/atelierlumen/gallerybackend/models"
	"github.com/atelierlumen/gallerybackend/repository"
)

// ReorderService renumbers per-context display order and keeps each
// layout group's aggregate position equal to its lowest member's.
type ReorderService struct {
	Images  repository.ImageRepositoryInterface
	Layouts repository.LayoutRepositoryInterface
}

func NewReorderService(images repository.ImageRepositoryInterface, layouts repository.LayoutRepositoryInterface) *ReorderService {
	return &ReorderService{Images: images, Layouts: layouts}
}

// Reorder walks the caller's full desired ordering for a context and
// assigns order = position to each instance. The first member of a
// layout group seen in the walk fixes that group's display order; later
// members never overwrite it. Returns the re-fetched instance set for
// the context. Idempotent for identical input.
func (s *ReorderService) Reorder(context string, instanceIDs []uint) ([]models.ImageInstance, error) {
	if context == "" || len(instanceIDs) == 0 {
		return nil, apperrors.Validationf("context and order array required")
	}
	if !models.IsValidContext(context) {
		return nil, apperrors.Validationf("invalid context, must be one of: %s", models.ContextList())
	}

	seenIDs := map[uint]bool{}
	for _, id := range instanceIDs {
		if seenIDs[id] {
			return nil, apperrors.Validationf("duplicate instance id %d in order", id)
		}
		seenIDs[id] = true
	}

	memberships, err := s.Layouts.ListMembershipsByInstanceIDs(instanceIDs)
	if err != nil {
		return nil, err
	}
	groupOf := make(map[uint]uint, len(memberships))
	for _, m := range memberships {
		groupOf[m.ImageInstanceID] = m.LayoutGroupID
	}

	groupOrdered := map[uint]bool{}
	for i, id := range instanceIDs {
		if err := s.Images.SetInstanceOrder(id, context, i); err != nil {
			return nil, err
		}
		if groupID, ok := groupOf[id]; ok && !groupOrdered[groupID] {
			groupOrdered[groupID] = true
			if err := s.Layouts.SetGroupDisplayOrder(groupID, i); err != nil {
				return nil, err
			}
		}
	}

	return s.Images.ListInstancesByContext(context)
}
