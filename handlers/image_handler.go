package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atelierlumen/gallerybackend/realtime"
	"github.com/atelierlumen/gallerybackend/services"
)

type ImageHandler struct {
	Uploads *services.UploadService
	Images  *services.ImageService
	Hub     *realtime.Hub
}

func NewImageHandler(uploads *services.UploadService, images *services.ImageService, hub *realtime.Hub) *ImageHandler {
	return &ImageHandler{Uploads: uploads, Images: images, Hub: hub}
}

type uploadURLPayload struct {
	Filename string `json:"filename"`
	Context  string `json:"context"`
	FileSize int64  `json:"fileSize"`
}

// RequestUploadURL issues a presigned PUT URL for a direct-to-storage upload.
func (h *ImageHandler) RequestUploadURL(w http.ResponseWriter, r *http.Request) {
	var payload uploadURLPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid request payload")
		return
	}

	uploadURL, storageKey, err := h.Uploads.IssueUploadURL(r.Context(), payload.Filename, payload.Context, payload.FileSize)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"uploadUrl":  uploadURL,
		"storageKey": storageKey,
	})
}

type confirmPayload struct {
	StorageKey         string   `json:"storageKey"`
	Filename           string   `json:"filename"`
	Context            string   `json:"context"`
	AdditionalContexts []string `json:"additionalContexts"`
	Alt                string   `json:"alt"`
	Description        string   `json:"description"`
	IsPrimary          bool     `json:"isPrimary"`
	IsPublic           *bool    `json:"isPublic"`
}

// ConfirmUpload verifies the uploaded object and registers it, creating
// one instance per requested context.
func (h *ImageHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	var payload confirmPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid request payload")
		return
	}

	instances, err := h.Uploads.Confirm(r.Context(), services.ConfirmRequest{
		StorageKey:         payload.StorageKey,
		Filename:           payload.Filename,
		Context:            payload.Context,
		AdditionalContexts: payload.AdditionalContexts,
		Alt:                payload.Alt,
		Description:        payload.Description,
		IsPrimary:          payload.IsPrimary,
		IsPublic:           payload.IsPublic,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	ids := make([]uint, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.ID)
	}
	h.Hub.Notify(realtime.EventImageCreated, payload.Context, ids, 0)

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"images":  instances,
	})
}

// ListByContext returns all instances of a display context ordered for display.
func (h *ImageHandler) ListByContext(w http.ResponseWriter, r *http.Request) {
	imgContext := r.URL.Query().Get("context")
	if imgContext == "" {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "context query parameter is required")
		return
	}

	instances, err := h.Images.ListByContext(imgContext)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"images": instances,
		"total":  len(instances),
	})
}

// GetImage returns a single instance with its base record, metadata and layout.
func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	instance, err := h.Images.Get(id)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"image": instance})
}

type updatePayload struct {
	Alt            *string  `json:"alt"`
	Description    *string  `json:"description"`
	IsPrimary      *bool    `json:"isPrimary"`
	IsPublic       *bool    `json:"isPublic"`
	AddContexts    []string `json:"addContexts"`
	RemoveContexts []string `json:"removeContexts"`
	RemoveLayout   bool     `json:"removeLayout"`
}

// UpdateImage applies a partial update to an instance and, for shared
// fields such as alt text, to the base image across every context.
func (h *ImageHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var payload updatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid request payload")
		return
	}

	result, err := h.Images.Update(id, services.UpdateRequest{
		Alt:            payload.Alt,
		Description:    payload.Description,
		IsPrimary:      payload.IsPrimary,
		IsPublic:       payload.IsPublic,
		AddContexts:    payload.AddContexts,
		RemoveContexts: payload.RemoveContexts,
		RemoveLayout:   payload.RemoveLayout,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	updatedContext := ""
	if result.Instance != nil {
		updatedContext = result.Instance.Context
	}
	h.Hub.Notify(realtime.EventImageUpdated, updatedContext, []uint{id}, 0)
	if result.LayoutRemoved {
		h.Hub.Notify(realtime.EventLayoutRemoved, updatedContext, []uint{id}, 0)
	}

	resp := map[string]interface{}{
		"success": true,
		"image":   result.Instance,
	}
	if result.AllContexts != nil {
		resp["allContexts"] = result.AllContexts
	}
	if result.LayoutRemoved {
		resp["layoutRemoved"] = true
	}
	WriteJSON(w, http.StatusOK, resp)
}

// DeleteImage removes one instance; the base image and stored object go
// with it when no other context still references them.
func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	instance, err := h.Images.Get(id)
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.Images.Delete(r.Context(), id)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.Hub.Notify(realtime.EventImageDeleted, instance.Context, []uint{id}, 0)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      result.ID,
	})
}

type multiUpdatePayload struct {
	InstanceIDs []uint `json:"instanceIds"`
	Updates     struct {
		IsPublic *bool `json:"isPublic"`
	} `json:"updates"`
}

// UpdateImages applies the same visibility change to a batch of
// instances best-effort, reporting per-id outcomes.
func (h *ImageHandler) UpdateImages(w http.ResponseWriter, r *http.Request) {
	var payload multiUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid request payload")
		return
	}
	if len(payload.InstanceIDs) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "instanceIds must not be empty")
		return
	}

	result, err := h.Images.UpdateMany(payload.InstanceIDs, payload.Updates.IsPublic)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.Hub.Notify(realtime.EventImageUpdated, "", payload.InstanceIDs, 0)

	errs := make(map[string]string, len(result.Errors))
	for id, msg := range result.Errors {
		errs[strconv.FormatUint(uint64(id), 10)] = msg
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": result.Failed == 0,
		"updated": result.Updated,
		"failed":  result.Failed,
		"errors":  errs,
	})
}

type multiDeletePayload struct {
	InstanceIDs []uint `json:"instanceIds"`
}

// DeleteImages deletes a batch of instances best-effort, reporting
// per-id failures instead of aborting on the first one.
func (h *ImageHandler) DeleteImages(w http.ResponseWriter, r *http.Request) {
	var payload multiDeletePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid request payload")
		return
	}
	if len(payload.InstanceIDs) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "instanceIds must not be empty")
		return
	}

	result, err := h.Images.DeleteMany(r.Context(), payload.InstanceIDs)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.Hub.Notify(realtime.EventImageDeleted, "", payload.InstanceIDs, 0)

	errs := make(map[string]string, len(result.Errors))
	for id, msg := range result.Errors {
		errs[strconv.FormatUint(uint64(id), 10)] = msg
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": result.Failed == 0,
		"deleted": result.Deleted,
		"failed":  result.Failed,
		"errors":  errs,
	})
}

// ListOrphaned lists stored objects no base image references.
func (h *ImageHandler) ListOrphaned(w http.ResponseWriter, r *http.Request) {
	orphans, err := h.Images.Orphaned(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"orphaned": orphans,
		"total":    len(orphans),
	})
}

// CleanupOrphaned deletes every orphaned object from storage.
func (h *ImageHandler) CleanupOrphaned(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Images.Cleanup(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	log.Printf("cleanup removed %d orphaned objects", len(deleted))
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": deleted,
		"total":   len(deleted),
	})
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid image ID")
		return 0, false
	}
	return uint(id), true
}
