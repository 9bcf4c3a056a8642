package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/raido/internal/apperr"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Search handles GET /api/search.
//
//	@Summary		Ranked full-text search over the indexed corpus
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Query string"
//	@Param			rank	query		string	false	"Rank mode"	Enums(none, asc, desc)
//	@Param			limit	query		int		false	"Maximum matches"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	matches, err := h.svc.Search(r.Context(), q.Get("q"), q.Get("rank"), limit)
	if err != nil {
		if errors.Is(err, apperr.ErrQuerySyntax) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Matches: matches, Total: len(matches)})
}

// Documents handles GET /api/documents.
//
//	@Summary		List indexed documents
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Documents(r.Context())
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	items := make([]DocumentItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, DocumentItem{
			Path:        d.Path,
			Fingerprint: d.Fingerprint,
			IndexedAt:   d.IndexedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: len(items)})
}

// Status handles GET /api/status.
//
//	@Summary		Index stats and update-run state
//	@Tags			index
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		slog.Error("status failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Reindex handles POST /api/reindex.
//
//	@Summary		Trigger a background index update
//	@Tags			index
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReindexRequest	false	"Options"
//	@Success		202		{object}	ReindexResponse
//	@Failure		409		{object}	ReindexResponse
//	@Security		BearerAuth
//	@Router			/reindex [post]
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	var req ReindexRequest
	if body, err := io.ReadAll(r.Body); err == nil && len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
			return
		}
	}

	if !h.svc.Reindex(r.Context(), req.Reupdate) {
		writeJSON(w, http.StatusConflict, ReindexResponse{Started: false})
		return
	}
	writeJSON(w, http.StatusAccepted, ReindexResponse{Started: true})
}
