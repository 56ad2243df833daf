package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/atelierlumen/gallerybackend/realtime"
	"github.com/atelierlumen/gallerybackend/services"
)

type LayoutHandler struct {
	Layouts *services.LayoutService
	Reorder *services.ReorderService
	Hub     *realtime.Hub
}

func NewLayoutHandler(layouts *services.LayoutService, reorder *services.ReorderService, hub *realtime.Hub) *LayoutHandler {
	return &LayoutHandler{Layouts: layouts, Reorder: reorder, Hub: hub}
}

type assignLayoutPayload struct {
	ImageIDs   []uint `json:"imageIds"`
	LayoutType string `json:"layoutType"`
	Context    string `json:"context"`
}

// AssignLayout groups instances under a layout type, retiring any prior
// groups the instances belonged to.
func (h *LayoutHandler) AssignLayout(w http.ResponseWriter, r *http.Request) {
	var payload assignLayoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid request payload")
		return
	}

	result, err := h.Layouts.AssignLayout(payload.ImageIDs, payload.LayoutType, payload.Context)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.Hub.Notify(realtime.EventLayoutAssigned, payload.Context, payload.ImageIDs, result.GroupID)

	resp := map[string]interface{}{
		"success": true,
		"images":  result.Instances,
		"groupId": result.GroupID,
	}
	if len(result.Warnings) > 0 {
		resp["warnings"] = result.Warnings
	}
	WriteJSON(w, http.StatusOK, resp)
}

type reorderPayload struct {
	Context string `json:"context"`
	Order   []uint `json:"order"`
}

// ReorderImages persists a full display ordering for one context.
func (h *LayoutHandler) ReorderImages(w http.ResponseWriter, r *http.Request) {
	var payload reorderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid request payload")
		return
	}

	instances, err := h.Reorder.Reorder(payload.Context, payload.Order)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.Hub.Notify(realtime.EventReordered, payload.Context, payload.Order, 0)

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"images":  instances,
	})
}
