package handler

import (
	"net/http"

	"spark-service/internal/domain"
	"spark-service/pkg/response"
)

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.Get(r.Context(), uid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.ProfileUpdate
	if !decode(w, r, &req) {
		return
	}
	p, err := h.profiles.Update(r.Context(), uid, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateNotificationPrefs(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.NotificationPrefs
	if !decode(w, r, &req) {
		return
	}
	prefs, err := h.profiles.UpdateNotificationPrefs(r.Context(), uid, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, prefs)
}

func (h *Handler) TestNotification(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	n, err := h.profiles.SendTestNotification(r.Context(), uid, h.lang(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int{"delivered": n})
}

func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	acts, err := h.activity.List(r.Context(), uid, queryInt(r, "limit", 0))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, acts)
}
