package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/hray3182/daymemory/internal/common"
	"github.com/hray3182/daymemory/internal/service"
)

func (s *Server) requestRecommendation(w http.ResponseWriter, r *http.Request) {
	var in service.RecommendationInput
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.Recommendations.Request(r.Context(), identity(r).UserID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) listRecommendations(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.Recommendations.List(r.Context(), identity(r).UserID, page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getRecommendation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.Recommendations.Get(r.Context(), identity(r).UserID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) saveSuggestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		s.writeError(w, r, fmt.Errorf("%w: suggestion index", common.ErrNotFound))
		return
	}
	g, created, err := s.Recommendations.SaveSuggestion(r.Context(), identity(r).UserID, id, index)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, g)
}
