package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dukerupert/pawkeep/internal/model"
)

type subscribeRequest struct {
	UserID     int64  `json:"user_id"`
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

// vapidKey returns the public VAPID key browsers need to create a push
// subscription.
func (s *Server) vapidKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": s.pushSvc.VAPIDPublicKey()})
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == 0 || req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		http.Error(w, "user_id, endpoint, p256dh, and auth are required", http.StatusBadRequest)
		return
	}

	sub, err := s.pushStore.CreateSubscription(req.UserID, req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		s.logger.Error("create push subscription", "error", err)
		http.Error(w, "Failed to save subscription", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}

	subs, err := s.pushStore.ListByUser(userID)
	if err != nil {
		s.logger.Error("list push subscriptions", "error", err)
		http.Error(w, "Failed to list subscriptions", http.StatusInternalServerError)
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) unsubscribe(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid subscription ID", http.StatusBadRequest)
		return
	}

	sub, err := s.pushStore.GetByID(id)
	if err != nil {
		s.logger.Error("get push subscription", "error", err)
		http.Error(w, "Failed to remove subscription", http.StatusInternalServerError)
		return
	}
	if sub == nil {
		http.Error(w, "Subscription not found", http.StatusNotFound)
		return
	}

	if err := s.pushStore.DeleteSubscription(id); err != nil {
		s.logger.Error("delete push subscription", "error", err)
		http.Error(w, "Failed to remove subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
