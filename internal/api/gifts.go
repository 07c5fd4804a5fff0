package api

import (
	"net/http"

	"github.com/hray3182/daymemory/internal/models"
	"github.com/hray3182/daymemory/internal/service"
)

func (s *Server) listGifts(w http.ResponseWriter, r *http.Request) {
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
	purchased, err := queryBool(r, "purchased")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := models.GiftQuery{
		EventID:     eventID,
		Category:    models.GiftCategory(r.URL.Query().Get("category")),
		Purchased:   purchased,
		PageRequest: page,
	}
	out, err := s.Gifts.List(r.Context(), identity(r).UserID, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createGift(w http.ResponseWriter, r *http.Request) {
	var in service.GiftInput
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.Gifts.Create(r.Context(), identity(r).UserID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) getGift(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.Gifts.Get(r.Context(), identity(r).UserID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) updateGift(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in service.GiftInput
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.Gifts.Update(r.Context(), identity(r).UserID, id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) deleteGift(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Gifts.Delete(r.Context(), identity(r).UserID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type purchasedRequest struct {
	IsPurchased bool `json:"is_purchased"`
}

func (s *Server) setPurchased(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in purchasedRequest
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.Gifts.SetPurchased(r.Context(), identity(r).UserID, id, in.IsPurchased)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type imageRequest struct {
	ContentType string `json:"content_type"`
}

func (s *Server) presignGiftImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var in imageRequest
	if err := decode(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	up, err := s.Gifts.PresignImageUpload(r.Context(), identity(r).UserID, id, in.ContentType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, up)
}
