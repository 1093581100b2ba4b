package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/obscura-press/obscura/pkg/publishing"
)

const maxSubmissionMemory = 32 << 20 // 32 MB

// ContentHandler handles HTTP requests for the content lifecycle
type ContentHandler struct {
	service publishing.Service
}

// NewContentHandler creates a new content handler
func NewContentHandler(service publishing.Service) *ContentHandler {
	return &ContentHandler{service: service}
}

// Routes returns the routes for content
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/editorial", h.SubmitEditorial)
	r.Post("/editorial/{id}/reschedule", h.RescheduleEditorial)
	r.Post("/editorial/{id}/publish", h.PublishNowEditorial)

	r.Post("/theories", h.SubmitTheory)
	r.Post("/theories/{id}/approve", h.ApproveTheory)
	r.Post("/theories/{id}/reject", h.RejectTheory)

	r.Get("/content", h.ListContent)
	r.Get("/content/{id}", h.GetContent)
	r.Delete("/content/{id}", h.DeleteContent)

	r.Put("/content/{id}/gallery/descriptions", h.UpdateGalleryDescriptions)
	r.Delete("/content/{id}/gallery/{handle}", h.RemoveGalleryImage)

	return r
}

// ContentResponse is the response body for a content item
type ContentResponse struct {
	ID              string                    `json:"id"`
	Kind            string                    `json:"kind"`
	Status          string                    `json:"status"`
	Title           string                    `json:"title"`
	Body            string                    `json:"body,omitempty"`
	AuthorName      string                    `json:"author_name,omitempty"`
	ScheduledFor    *time.Time                `json:"scheduled_for,omitempty"`
	ReviewedAt      *time.Time                `json:"reviewed_at,omitempty"`
	RejectionReason string                    `json:"rejection_reason,omitempty"`
	Thumbnail       *publishing.AssetRef      `json:"thumbnail,omitempty"`
	Gallery         []publishing.GalleryImage `json:"gallery,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	UpdatedAt       time.Time                 `json:"updated_at"`
}

func toContentResponse(item *publishing.ContentItem) ContentResponse {
	return ContentResponse{
		ID:              item.ID.String(),
		Kind:            string(item.Kind),
		Status:          string(item.Status),
		Title:           item.Title,
		Body:            item.Body,
		AuthorName:      item.AuthorName,
		ScheduledFor:    item.ScheduledFor,
		ReviewedAt:      item.ReviewedAt,
		RejectionReason: item.RejectionReason,
		Thumbnail:       item.Thumbnail,
		Gallery:         item.Gallery,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}

// SubmitEditorial accepts a multipart editorial submission
func (h *ContentHandler) SubmitEditorial(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSubmissionMemory); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	req := publishing.SubmitEditorialRequest{
		Kind:        publishing.Kind(r.FormValue("kind")),
		Title:       r.FormValue("title"),
		Body:        r.FormValue("body"),
		AuthorName:  r.FormValue("author_name"),
		AuthorEmail: r.FormValue("author_email"),
		PublishNow:  r.FormValue("publish_now") == "true",
	}

	if v := r.FormValue("scheduled_for"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "scheduled_for must be RFC 3339", http.StatusBadRequest)
			return
		}
		req.ScheduledFor = &t
	}

	closers, err := attachUploads(r, &req)
	defer closeAll(closers)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.service.SubmitEditorial(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toContentResponse(item))
}

// RescheduleRequest is the request body for moving a scheduled item
type RescheduleRequest struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// RescheduleEditorial moves a scheduled item's publication time
func (h *ContentHandler) RescheduleEditorial(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.RescheduleEditorial(r.Context(), id, req.ScheduledFor); err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// PublishNowEditorial publishes a scheduled or draft item immediately
func (h *ContentHandler) PublishNowEditorial(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.PublishNowEditorial(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// SubmitTheory accepts a multipart theory submission
func (h *ContentHandler) SubmitTheory(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxSubmissionMemory); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	req := publishing.SubmitTheoryRequest{
		Title:       r.FormValue("title"),
		Body:        r.FormValue("body"),
		AuthorName:  r.FormValue("author_name"),
		AuthorEmail: r.FormValue("author_email"),
	}

	var closers []io.Closer
	if file, header, err := r.FormFile("attachment"); err == nil {
		closers = append(closers, file)
		req.Attachment = &publishing.AssetUpload{
			Reader:      file,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
		}
	}
	defer closeAll(closers)

	item, err := h.service.SubmitTheory(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toContentResponse(item))
}

// ApproveTheory approves a pending theory
func (h *ContentHandler) ApproveTheory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.ApproveTheory(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// RejectRequest is the request body for rejecting a theory
type RejectRequest struct {
	Reason string `json:"reason"`
}

// RejectTheory rejects a pending theory with a reason
func (h *ContentHandler) RejectTheory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.RejectTheory(r.Context(), id, req.Reason); err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// GetContent returns one content item
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	item, err := h.service.GetContent(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.JSON(w, r, toContentResponse(item))
}

// ListContent returns items filtered by kind and status query params
func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	var req publishing.ListContentRequest
	if v := r.URL.Query().Get("kind"); v != "" {
		kind := publishing.Kind(v)
		req.Kind = &kind
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := publishing.Status(v)
		req.Status = &status
	}

	items, err := h.service.ListContent(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	responses := make([]ContentResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toContentResponse(item))
	}
	render.JSON(w, r, responses)
}

// DeleteContent removes an item and its owned assets
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteContent(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// UpdateGalleryDescriptions replaces gallery descriptions by handle
func (h *ContentHandler) UpdateGalleryDescriptions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var descriptions map[string]string
	if err := json.NewDecoder(r.Body).Decode(&descriptions); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateGalleryDescriptions(r.Context(), id, descriptions); err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// RemoveGalleryImage removes one gallery entry and its remote object
func (h *ContentHandler) RemoveGalleryImage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	handle := chi.URLParam(r, "handle")
	if err := h.service.RemoveGalleryImage(r.Context(), id, handle); err != nil {
		writeServiceError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// Helpers

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid content id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// attachUploads wires the thumbnail and gallery files from the multipart
// form onto the request. Gallery descriptions are index-aligned repeated
// "gallery_description" values.
func attachUploads(r *http.Request, req *publishing.SubmitEditorialRequest) ([]io.Closer, error) {
	var closers []io.Closer

	if file, header, err := r.FormFile("thumbnail"); err == nil {
		closers = append(closers, file)
		req.Thumbnail = &publishing.AssetUpload{
			Reader:      file,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
		}
	}

	if r.MultipartForm == nil {
		return closers, nil
	}
	descriptions := r.MultipartForm.Value["gallery_description"]
	for i, header := range r.MultipartForm.File["gallery"] {
		file, err := header.Open()
		if err != nil {
			return closers, errors.New("failed to read gallery file")
		}
		closers = append(closers, file)

		upload := publishing.AssetUpload{
			Reader:      file,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
		}
		if i < len(descriptions) {
			upload.Description = descriptions[i]
		}
		req.Gallery = append(req.Gallery, upload)
	}
	return closers, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		c.Close()
	}
}

// writeServiceError maps engine errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, publishing.ErrValidation), errors.Is(err, publishing.ErrInvalidSchedule):
		status = http.StatusBadRequest
	case errors.Is(err, publishing.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, publishing.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, publishing.ErrAssetStoreUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		slog.Error("content operation failed", "path", r.URL.Path, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}
