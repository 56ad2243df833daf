package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atelierlumen/gallerybackend/services"
)

type EventHandler struct {
	Events *services.EventService
}

func NewEventHandler(events *services.EventService) *EventHandler {
	return &EventHandler{Events: events}
}

type eventPayload struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Date     string `json:"date"`
	Location string `json:"location"`
	IsPublic *bool  `json:"is_public"`
}

func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var payload eventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid request payload")
		return
	}

	isPublic := true
	if payload.IsPublic != nil {
		isPublic = *payload.IsPublic
	}

	event, err := h.Events.Create(payload.Name, payload.Slug, payload.Date, payload.Location, isPublic)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Events.List()
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"total":  len(events),
	})
}

func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEventID(w, r)
	if !ok {
		return
	}

	event, err := h.Events.Get(id)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, event)
}

func (h *EventHandler) GetEventBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	event, err := h.Events.GetBySlug(slug)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, event)
}

type eventUpdatePayload struct {
	Name     *string `json:"name"`
	Date     *string `json:"date"`
	Location *string `json:"location"`
	IsPublic *bool   `json:"is_public"`
}

func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEventID(w, r)
	if !ok {
		return
	}

	var payload eventUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid request payload")
		return
	}

	event, err := h.Events.Update(id, payload.Name, payload.Date, payload.Location, payload.IsPublic)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, event)
}

func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEventID(w, r)
	if !ok {
		return
	}

	if err := h.Events.Delete(id); err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": id})
}

type eventImagePayload struct {
	ImageInstanceID uint `json:"image_instance_id"`
	AsCover         bool `json:"as_cover"`
}

func (h *EventHandler) AddEventImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEventID(w, r)
	if !ok {
		return
	}

	var payload eventImagePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid request payload")
		return
	}

	if err := h.Events.AddImage(id, payload.ImageInstanceID, payload.AsCover); err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *EventHandler) RemoveEventImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseEventID(w, r)
	if !ok {
		return
	}

	instanceID, err := strconv.ParseUint(chi.URLParam(r, "instanceID"), 10, 64)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid instance ID")
		return
	}

	if err := h.Events.RemoveImage(id, uint(instanceID)); err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func parseEventID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid event ID")
		return 0, false
	}
	return uint(id), true
}
