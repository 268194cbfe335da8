package api

import (
	"net/http"

	"github.com/devopshub/gatehouse/pkg/audit"
	"github.com/devopshub/gatehouse/pkg/content"
	"github.com/devopshub/gatehouse/pkg/drive"
	"github.com/devopshub/gatehouse/pkg/httputil"
)

// handleListContent returns the library, newest first. A q parameter filters
// by case-insensitive substring over title, description, and series.
func (s *Server) handleListContent(w http.ResponseWriter, r *http.Request) {
	term := httputil.ParseQueryString(r, "q", "")

	items, err := s.library.Search(r.Context(), term)
	if err != nil {
		writeContentError(w, err)
		return
	}

	httputil.WriteSuccess(w, ContentListResponse{Items: items, Count: len(items)})
}

// handleSeries returns the library partitioned into browsing rows
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	groups, err := s.library.Series(r.Context())
	if err != nil {
		writeContentError(w, err)
		return
	}

	httputil.WriteSuccess(w, SeriesResponse{Groups: groups})
}

// handleGetContent returns one item by ID
func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	item, err := s.library.Get(r.Context(), id)
	if err != nil {
		writeContentError(w, err)
		return
	}

	httputil.WriteSuccess(w, item)
}

// handlePlaylist returns the up-next queue for an item
func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	items, err := s.library.PlaylistFor(r.Context(), id)
	if err != nil {
		writeContentError(w, err)
		return
	}

	httputil.WriteSuccess(w, PlaylistResponse{Items: items, Count: len(items)})
}

// handleLinks returns the Drive URLs for an item
func (s *Server) handleLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	item, err := s.library.Get(r.Context(), id)
	if err != nil {
		writeContentError(w, err)
		return
	}

	httputil.WriteSuccess(w, drive.LinksFor(*item))
}

// handleAddContent creates a library item
func (s *Server) handleAddContent(w http.ResponseWriter, r *http.Request) {
	var fields content.Fields
	if !httputil.ParseJSONOrError(w, r, &fields) {
		return
	}

	item, err := s.library.Add(r.Context(), fields)
	if err != nil {
		writeContentError(w, err)
		return
	}

	s.record(r, audit.ActionContentAdded, item.ID, item.Title)
	httputil.WriteCreated(w, item)
}

// handleUpdateContent merges the provided fields into an item
func (s *Server) handleUpdateContent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var fields content.Fields
	if !httputil.ParseJSONOrError(w, r, &fields) {
		return
	}

	item, err := s.library.Update(r.Context(), id, fields)
	if err != nil {
		writeContentError(w, err)
		return
	}

	s.record(r, audit.ActionContentUpdated, id, item.Title)
	httputil.WriteSuccess(w, item)
}

// handleRemoveContent deletes an item. Absent IDs still succeed.
func (s *Server) handleRemoveContent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.library.Remove(r.Context(), id); err != nil {
		writeContentError(w, err)
		return
	}

	s.record(r, audit.ActionContentRemoved, id, "")
	httputil.WriteNoContent(w)
}
