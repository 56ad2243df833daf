package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/atelierlumen/gallerybackend/models"
	"github.com/atelierlumen/gallerybackend/repository"
)

type ContentHandler struct {
	Content repository.ContentRepositoryInterface
}

func NewContentHandler(content repository.ContentRepositoryInterface) *ContentHandler {
	return &ContentHandler{Content: content}
}

// ListContent returns all key/value entries for one context.
func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	imgContext := r.URL.Query().Get("context")
	if imgContext == "" {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "context query parameter is required")
		return
	}
	if !models.IsValidContext(imgContext) {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid context, must be one of: "+models.ContextList())
		return
	}

	entries, err := h.Content.List(imgContext)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"content": entries,
		"total":   len(entries),
	})
}

type contentPayload struct {
	Context string `json:"context"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

// UpsertContent creates or replaces one key/value entry.
func (h *ContentHandler) UpsertContent(w http.ResponseWriter, r *http.Request) {
	var payload contentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid request payload")
		return
	}
	if payload.Context == "" || payload.Key == "" {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "context and key are required")
		return
	}
	if !models.IsValidContext(payload.Context) {
		WriteAPIError(w, http.StatusBadRequest, "validation_error", "invalid context, must be one of: "+models.ContextList())
		return
	}

	if err := h.Content.Upsert(payload.Context, payload.Key, payload.Value); err != nil {
		WriteError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
