package api

import "net/http"

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.Insights.Dashboard(r.Context(), identity(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	month, err := queryInt(r, "month", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entries, err := s.Insights.Calendar(r.Context(), identity(r).UserID, year, month)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) reminderStats(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.Insights.ReminderStats(r.Context(), identity(r).UserID, days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) eventStats(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.Insights.EventStats(r.Context(), identity(r).UserID, year)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) giftStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Insights.GiftStats(r.Context(), identity(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
