package api

import (
	"net/http"

	"github.com/hray3182/daymemory/internal/models"
	"github.com/hray3182/daymemory/internal/service"
)

func (s *Server) listLogs(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	eventID, err := queryUUID(r, "event_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := models.ReminderLogQuery{
		Status:      models.LogStatus(r.URL.Query().Get("status")),
		EventID:     eventID,
		PageRequest: page,
	}
	out, err := s.Reminders.Logs(r.Context(), identity(r).UserID, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.Reminders.Log(r.Context(), identity(r).UserID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) retryLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "logId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.Reminders.Retry(r.Context(), identity(r).UserID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) retryInstance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.Reminders.RetryInstance(r.Context(), identity(r).UserID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) sendNow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "eventId")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	l, err := s.Reminders.SendNow(r.Context(), identity(r).UserID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	out, err := s.Settings.Get(r.Context(), identity(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var in service.SettingsInput
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.Settings.Update(r.Context(), identity(r).UserID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
