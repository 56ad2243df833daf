package services

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/facette/natsort"

	"github.com/atelierlumen/gallerybackend/apperrors"
	"github.com/atelierlumen/gallerybackend/config"
	"github.com/atelierlumen/gallerybackend/models"
	"github.com/atelierlumen/gallerybackend/repository"
	"github.com/atelierlumen/gallerybackend/storage"
)

// ImageService owns instance mutation and deletion: PATCH semantics,
// single and multi delete with base-image cascade, and the orphaned
// object scan.
type ImageService struct {
	Images  repository.ImageRepositoryInterface
	Layouts repository.LayoutRepositoryInterface
	Store   storage.ObjectStore
}

func NewImageService(images repository.ImageRepositoryInterface, layouts repository.LayoutRepositoryInterface, store storage.ObjectStore) *ImageService {
	return &ImageService{Images: images, Layouts: layouts, Store: store}
}

// UpdateRequest carries the patchable fields of an instance. Nil
// pointers mean "leave unchanged".
type UpdateRequest struct {
	Alt            *string
	Description    *string
	IsPrimary      *bool
	IsPublic       *bool
	AddContexts    []string
	RemoveContexts []string
	RemoveLayout   bool
}

// UpdateResult reports the refreshed instance plus, when context
// membership changed, every placement of the base image.
type UpdateResult struct {
	Instance      *models.ImageInstance
	AllContexts   []models.ImageInstance
	LayoutRemoved bool
}

// DeleteResult reports a single-instance deletion.
type DeleteResult struct {
	ID          uint
	BaseDeleted bool
}

// MultiDeleteResult reports per-id outcomes of a best-effort batch delete.
type MultiDeleteResult struct {
	Deleted int
	Failed  int
	Errors  map[uint]string
}

// MultiUpdateResult reports per-id outcomes of a best-effort batch update.
type MultiUpdateResult struct {
	Updated int
	Failed  int
	Errors  map[uint]string
}

// Get returns one instance with its relations.
func (s *ImageService) Get(id uint) (*models.ImageInstance, error) {
	instance, err := s.Images.GetInstanceByID(id)
	if err != nil {
		if notFound(err) {
			return nil, apperrors.NotFoundf("image %d not found", id)
		}
		return nil, err
	}
	return instance, nil
}

// ListByContext returns a context's instances in display order.
func (s *ImageService) ListByContext(imgContext string) ([]models.ImageInstance, error) {
	if !models.IsValidContext(imgContext) {
		return nil, apperrors.Validationf("invalid context, must be one of: %s", models.ContextList())
	}
	return s.Images.ListInstancesByContext(imgContext)
}

// Update applies a PATCH to one instance. Alt text lands on the base
// image (shared by every context), descriptions on the instance's
// metadata row, primary promotion transactionally demotes the previous
// primary, and context membership changes create or delete sibling
// instances of the same base image.
func (s *ImageService) Update(id uint, req UpdateRequest) (*UpdateResult, error) {
	for _, add := range req.AddContexts {
		for _, rem := range req.RemoveContexts {
			if add == rem {
				return nil, apperrors.Validationf("cannot add and remove the same context %q", add)
			}
		}
	}
	if req.Alt != nil && len(*req.Alt) > config.MaxAltLength {
		return nil, apperrors.Validationf("alt text max %d characters", config.MaxAltLength)
	}
	for _, c := range append(append([]string{}, req.AddContexts...), req.RemoveContexts...) {
		if !models.IsValidContext(c) {
			return nil, apperrors.Validationf("invalid context %q, must be one of: %s", c, models.ContextList())
		}
	}

	current, err := s.Images.GetInstanceByID(id)
	if err != nil {
		if notFound(err) {
			return nil, apperrors.NotFoundf("image %d not found", id)
		}
		return nil, err
	}
	base := current.Base
	if base == nil {
		return nil, fmt.Errorf("instance %d has no base image", id)
	}

	if req.Alt != nil {
		if err := s.Images.UpdateAltForPath(base.StoragePath, *req.Alt); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		if err := s.Images.UpsertMetadata(id, *req.Description); err != nil {
			return nil, err
		}
	}
	if req.IsPrimary != nil {
		if err := s.Images.SetPrimary(id, current.Context, *req.IsPrimary); err != nil {
			return nil, err
		}
	}
	if req.IsPublic != nil {
		if err := s.Images.SetPublic(id, *req.IsPublic); err != nil {
			return nil, err
		}
	}

	layoutRemoved := false
	if req.RemoveLayout {
		removed, err := s.removeLayoutFor(id)
		if err != nil {
			return nil, err
		}
		layoutRemoved = removed
	}

	if len(req.RemoveContexts) > 0 {
		if err := s.removeContexts(base.ID, current, req.RemoveContexts); err != nil {
			return nil, err
		}
	}
	if len(req.AddContexts) > 0 {
		if err := s.addContexts(base.ID, current, req.AddContexts); err != nil {
			return nil, err
		}
	}

	result := &UpdateResult{LayoutRemoved: layoutRemoved}
	result.Instance, err = s.Images.GetInstanceByID(id)
	if err != nil {
		if notFound(err) {
			// the patched context itself was removed
			result.Instance = nil
		} else {
			return nil, err
		}
	}

	if len(req.AddContexts) > 0 || len(req.RemoveContexts) > 0 {
		result.AllContexts, err = s.Images.ListInstancesByImageID(base.ID)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Delete removes one instance. If it was the base image's last
// placement the base row goes too, followed by a best-effort delete of
// the storage object.
func (s *ImageService) Delete(ctx context.Context, id uint) (*DeleteResult, error) {
	instance, err := s.Images.GetInstanceByID(id)
	if err != nil {
		if notFound(err) {
			return nil, apperrors.NotFoundf("image %d not found", id)
		}
		return nil, err
	}
	base := instance.Base
	if base == nil {
		return nil, fmt.Errorf("instance %d has no base image", id)
	}

	// a deleted member retires its whole layout group; groups never
	// survive partially
	if _, err := s.removeLayoutFor(id); err != nil {
		return nil, err
	}

	if err := s.Images.DeleteInstanceRow(id); err != nil {
		return nil, err
	}

	remaining, err := s.Images.ListInstancesByImageID(base.ID)
	if err != nil {
		return nil, err
	}
	if len(remaining) > 0 {
		return &DeleteResult{ID: id}, nil
	}

	if err := s.Images.DeleteBaseImage(base.ID); err != nil {
		return nil, err
	}
	if err := s.Store.DeleteObject(ctx, base.StoragePath); err != nil {
		// DB rows are already gone; the object shows up in the orphan
		// scan if this delete failed
		log.Printf("WARNING: failed to delete storage object %s: %v", base.StoragePath, err)
	}
	return &DeleteResult{ID: id, BaseDeleted: true}, nil
}

// DeleteMany deletes each named instance independently, reporting
// per-id outcomes instead of failing the whole batch.
func (s *ImageService) DeleteMany(ctx context.Context, ids []uint) (*MultiDeleteResult, error) {
	if len(ids) == 0 {
		return nil, apperrors.Validationf("instanceIds required")
	}
	result := &MultiDeleteResult{Errors: map[uint]string{}}
	for _, id := range ids {
		if _, err := s.Delete(ctx, id); err != nil {
			result.Failed++
			result.Errors[id] = err.Error()
			continue
		}
		result.Deleted++
	}
	return result, nil
}

// UpdateMany sets visibility on each named instance independently; one
// bad id does not stop the rest.
func (s *ImageService) UpdateMany(ids []uint, isPublic *bool) (*MultiUpdateResult, error) {
	if len(ids) == 0 {
		return nil, apperrors.Validationf("instanceIds required")
	}
	if isPublic == nil {
		return nil, apperrors.Validationf("no updates provided")
	}
	result := &MultiUpdateResult{Errors: map[uint]string{}}
	for _, id := range ids {
		// SetPublic is a blind UPDATE, so check existence first to
		// report missing ids per item
		if _, err := s.Images.GetInstanceByID(id); err != nil {
			result.Failed++
			if notFound(err) {
				result.Errors[id] = fmt.Sprintf("image %d not found", id)
			} else {
				result.Errors[id] = err.Error()
			}
			continue
		}
		if err := s.Images.SetPublic(id, *isPublic); err != nil {
			result.Failed++
			result.Errors[id] = err.Error()
			continue
		}
		result.Updated++
	}
	return result, nil
}

// Orphaned lists storage objects with no corresponding base image,
// naturally sorted by key.
func (s *ImageService) Orphaned(ctx context.Context) ([]storage.ObjectInfo, error) {
	objects, err := s.Store.ListObjects(ctx, "")
	if err != nil {
		return nil, apperrors.Storagef(err, "failed to list storage objects")
	}
	paths, err := s.Images.ListStoragePaths()
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(paths))
	for _, p := range paths {
		known[p] = true
	}

	var orphaned []storage.ObjectInfo
	for _, obj := range objects {
		if !known[obj.Key] {
			orphaned = append(orphaned, obj)
		}
	}

	keys := make([]string, len(orphaned))
	byKey := make(map[string]storage.ObjectInfo, len(orphaned))
	for i, obj := range orphaned {
		keys[i] = obj.Key
		byKey[obj.Key] = obj
	}
	natsort.Sort(keys)
	sorted := make([]storage.ObjectInfo, len(keys))
	for i, k := range keys {
		sorted[i] = byKey[k]
	}
	return sorted, nil
}

// Cleanup deletes every orphaned storage object and returns the keys
// removed. Per-object failures are logged and skipped.
func (s *ImageService) Cleanup(ctx context.Context) ([]string, error) {
	orphaned, err := s.Orphaned(ctx)
	if err != nil {
		return nil, err
	}
	var deleted []string
	for _, obj := range orphaned {
		if err := s.Store.DeleteObject(ctx, obj.Key); err != nil {
			log.Printf("WARNING: failed to delete orphaned object %s: %v", obj.Key, err)
			continue
		}
		deleted = append(deleted, obj.Key)
	}
	return deleted, nil
}

func (s *ImageService) removeLayoutFor(instanceID uint) (bool, error) {
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

func (s *ImageService) removeContexts(baseID uint, current *models.ImageInstance, contexts []string) error {
	all, err := s.Images.ListInstancesByImageID(baseID)
	if err != nil {
		return err
	}

	removeSet := map[string]bool{}
	for _, c := range contexts {
		removeSet[c] = true
	}
	remaining := 0
	for _, inst := range all {
		if !removeSet[inst.Context] {
			remaining++
		}
	}
	if remaining == 0 {
		return apperrors.Validationf("cannot remove all contexts, use the delete endpoint instead")
	}

	for _, inst := range all {
		if !removeSet[inst.Context] {
			continue
		}
		if _, err := s.removeLayoutFor(inst.ID); err != nil {
			return err
		}
		if err := s.Images.DeleteInstanceRow(inst.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *ImageService) addContexts(baseID uint, current *models.ImageInstance, contexts []string) error {
	all, err := s.Images.ListInstancesByImageID(baseID)
	if err != nil {
		return err
	}
	existing := map[string]bool{}
	for _, inst := range all {
		existing[inst.Context] = true
	}

	// keep creation deterministic regardless of request ordering
	toAdd := make([]string, 0, len(contexts))
	for _, c := range contexts {
		if !existing[c] {
			toAdd = append(toAdd, c)
			existing[c] = true
		}
	}
	sort.Strings(toAdd)

	for _, c := range toAdd {
		instance := models.ImageInstance{
			ImageID:  baseID,
			Context:  c,
			IsPublic: current.IsPublic,
		}
		if err := s.Images.CreateInstance(&instance); err != nil {
			return err
		}
	}
	return nil
}
