package api

import (
	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/store"
)

// SearchResponse wraps search results.
type SearchResponse struct {
	Matches []query.Match `json:"matches" validate:"required"`
	Total   int           `json:"total" example:"3" validate:"required"`
}

// DocumentItem is one indexed document in a list response.
type DocumentItem struct {
	Path        string `json:"path" example:"reports/q3.pdf" validate:"required"`
	Fingerprint string `json:"fingerprint" example:"20481-1735732800000000000" validate:"required"`
	IndexedAt   string `json:"indexed_at" validate:"required"`
}

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []DocumentItem `json:"documents" validate:"required"`
	Total     int            `json:"total" example:"42" validate:"required"`
}

// StatusResponse reports index content and update-run state.
type StatusResponse struct {
	Stats    store.Stats `json:"stats" validate:"required"`
	Indexing bool        `json:"indexing" example:"false" validate:"required"`
	Progress int         `json:"progress" example:"-1" validate:"required"`
}

// ReindexRequest is the request body for triggering an update run.
type ReindexRequest struct {
	Reupdate bool `json:"reupdate" example:"false"`
}

// ReindexResponse reports whether the run was accepted.
type ReindexResponse struct {
	Started bool `json:"started" validate:"required"`
}
