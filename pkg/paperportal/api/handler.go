package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/studyarchive/paper-portal/pkg/paperportal"
)

// multipartMemory caps the in-memory portion of a multipart parse; the rest
// spills to temp files. The real upload ceiling is enforced by the service.
const multipartMemory = 8 << 20

// Handler handles HTTP requests for submissions using pkg/paperportal
type Handler struct {
	service paperportal.Service
}

// NewHandler creates a new submission handler
func NewHandler(service paperportal.Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the routes for the submission API. Authenticated routes sit
// behind the JWT verifier; public-link routes are mounted separately so
// anonymous fetches never touch identity handling.
func (h *Handler) Routes(tokenAuth *jwtauth.JWTAuth) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(CallerExtractor)

		r.Post("/submissions", h.Upload)
		r.Get("/submissions", h.List)
		r.Get("/submissions/{id}", h.GetMetadata)
		r.Get("/submissions/{id}/preview", h.Preview)
		r.Get("/submissions/{id}/download", h.Download)
		r.Put("/submissions/{id}", h.Update)
		r.Delete("/submissions/{id}", h.Delete)
		r.Post("/submissions/{id}/review", h.Review)
		r.Post("/submissions/{id}/link", h.IssueLink)
		r.Delete("/submissions/{id}/link", h.RevokeLink)
		r.Get("/stats", h.Stats)
	})

	return r
}

// PublicRoutes returns the anonymous public-link routes.
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}", h.FetchPublic)
	r.Get("/{token}/meta", h.PublicMetadata)
	return r
}

// ReviewRequest is the request body for a review verdict
type ReviewRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// ReviewResponse is the response body after a review verdict
type ReviewResponse struct {
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
}

// UploadResponse is the response body after an upload
type UploadResponse struct {
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
}

// LinkResponse is the response body after issuing a public link
type LinkResponse struct {
	Token string `json:"token"`
}

// UpdateRequest is the request body for metadata edits
type UpdateRequest struct {
	Title        string `json:"title,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	Year         int    `json:"year,omitempty"`
}

// Upload accepts a multipart form with a "file" part plus descriptive fields.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		renderError(w, r, fmt.Errorf("%w: malformed multipart form", paperportal.ErrInvalidArgument))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		renderError(w, r, fmt.Errorf("%w: file part is required", paperportal.ErrInvalidArgument))
		return
	}
	defer file.Close()

	year, _ := strconv.Atoi(r.FormValue("year"))
	req := paperportal.UploadRequest{
		Filename:     header.Filename,
		Title:        r.FormValue("title"),
		DocumentType: r.FormValue("document_type"),
		Year:         year,
		DeclaredSize: header.Size,
		Body:         file,
	}

	sub, err := h.service.Upload(r.Context(), CallerFromContext(r.Context()), req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadResponse{
		SubmissionID: sub.ID.String(),
		Status:       string(sub.Status),
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var filter paperportal.SubmissionFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := paperportal.SubmissionStatus(raw)
		if !status.Valid() {
			renderError(w, r, fmt.Errorf("%w: unknown status %q", paperportal.ErrInvalidArgument, raw))
			return
		}
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			renderError(w, r, fmt.Errorf("%w: invalid owner_id", paperportal.ErrInvalidArgument))
			return
		}
		filter.OwnerID = &ownerID
	}

	metas, err := h.service.ListSubmissions(r.Context(), CallerFromContext(r.Context()), filter)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, metas)
}

func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := submissionID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	meta, err := h.service.GetMetadata(r.Context(), CallerFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, meta)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	h.serveBytes(w, r, paperportal.OpPreviewBytes)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	h.serveBytes(w, r, paperportal.OpDownloadBytes)
}

func (h *Handler) serveBytes(w http.ResponseWriter, r *http.Request, op paperportal.Operation) {
	id, err := submissionID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	result, err := h.service.FetchBytes(r.Context(), CallerFromContext(r.Context()), id, op)
	if err != nil {
		renderError(w, r, err)
		return
	}
	writeFetchResult(w, result, op == paperportal.OpDownloadBytes)
}

// Update is the shared edit endpoint: a multipart body replaces a pending
// submission's content, a JSON body edits descriptive metadata.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := submissionID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}
	caller := CallerFromContext(r.Context())

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			renderError(w, r, fmt.Errorf("%w: malformed multipart form", paperportal.ErrInvalidArgument))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			renderError(w, r, fmt.Errorf("%w: file part is required", paperportal.ErrInvalidArgument))
			return
		}
		defer file.Close()

		sub, err := h.service.ReplaceContent(r.Context(), caller, paperportal.ReplaceContentRequest{
			SubmissionID: id,
			Filename:     header.Filename,
			DeclaredSize: header.Size,
			Body:         file,
		})
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, UploadResponse{SubmissionID: sub.ID.String(), Status: string(sub.Status)})
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("%w: malformed request body", paperportal.ErrInvalidArgument))
		return
	}
	sub, err := h.service.UpdateMetadata(r.Context(), caller, paperportal.UpdateMetadataRequest{
		SubmissionID: id,
		Title:        req.Title,
		DocumentType: req.DocumentType,
		Year:         req.Year,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, UploadResponse{SubmissionID: sub.ID.String(), Status: string(sub.Status)})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := submissionID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.service.DeleteSubmission(r.Context(), CallerFromContext(r.Context()), id); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	id, err := submissionID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("%w: malformed request body", paperportal.ErrInvalidArgument))
		return
	}

	status, err := h.service.Review(r.Context(), CallerFromContext(r.Context()), paperportal.ReviewRequest{
		SubmissionID: id,
		Decision:     paperportal.ReviewDecision(req.Decision),
		Reason:       req.Reason,
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, ReviewResponse{SubmissionID: id.String(), Status: string(status)})
}

func (h *Handler) IssueLink(w http.ResponseWriter, r *http.Request) {
	id, err := submissionID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	token, err := h.service.IssuePublicLink(r.Context(), CallerFromContext(r.Context()), id)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, LinkResponse{Token: token})
}

func (h *Handler) RevokeLink(w http.ResponseWriter, r *http.Request) {
	id, err := submissionID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.service.RevokePublicLink(r.Context(), CallerFromContext(r.Context()), id); err != nil {
		renderError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Stats(r.Context(), CallerFromContext(r.Context()))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, counts)
}

func (h *Handler) FetchPublic(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	result, err := h.service.FetchPublic(r.Context(), token)
	if err != nil {
		renderError(w, r, err)
		return
	}
	// Public fetches render inline when the type allows it.
	writeFetchResult(w, result, !result.CanPreview)
}

func (h *Handler) PublicMetadata(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	meta, err := h.service.GetPublicMetadata(r.Context(), token)
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, meta)
}

// Helpers

func submissionID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid submission id", paperportal.ErrInvalidArgument)
	}
	return id, nil
}

func writeFetchResult(w http.ResponseWriter, result *paperportal.FetchResult, attachment bool) {
	defer result.Body.Close()

	w.Header().Set("Content-Type", result.MimeType)
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{
		"filename": result.Filename,
	}))
	if result.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(result.Size, 10))
	}
	if _, err := io.Copy(w, result.Body); err != nil {
		slog.Error("Failed to stream submission bytes", "error", err)
	}
}

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// renderError maps domain errors onto HTTP status codes. Storage
// inconsistency is already downgraded to a not-found by the service so
// backend drift never leaks here.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, paperportal.ErrSubmissionNotFound),
		errors.Is(err, paperportal.ErrBytesNotFound),
		errors.Is(err, paperportal.ErrLinkNotFound):
		status = http.StatusNotFound
		msg = "not found"
	case errors.Is(err, paperportal.ErrForbidden):
		status = http.StatusForbidden
		msg = "forbidden"
	case errors.Is(err, paperportal.ErrPayloadTooLarge):
		status = http.StatusRequestEntityTooLarge
		msg = "payload too large"
	case errors.Is(err, paperportal.ErrInvalidArgument):
		status = http.StatusBadRequest
		msg = err.Error()
	default:
		slog.Error("Unhandled API error", "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}
