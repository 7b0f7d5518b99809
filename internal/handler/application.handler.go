package handler

import (
	"net/http"

	"spark-service/internal/domain"
	"spark-service/pkg/middleware"
	"spark-service/pkg/response"

	"github.com/go-chi/chi/v5"
)

type statusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.requests.ServiceTypes())
}

func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req domain.NewServiceRequest
	if !decode(w, r, &req) {
		return
	}
	sr, err := h.requests.Create(r.Context(), uid, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, sr)
}

func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	list, err := h.requests.ListMine(r.Context(), uid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, list)
}

func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	sr, err := h.requests.Get(r.Context(), uid, middleware.GetRole(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, sr)
}

func (h *Handler) ApplicationUpdates(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	ups, err := h.requests.Updates(r.Context(), uid, middleware.GetRole(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, ups)
}

func (h *Handler) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Status == "" {
		response.Error(w, http.StatusBadRequest, "Status is required")
		return
	}
	sr, err := h.requests.UpdateStatus(r.Context(), uid, chi.URLParam(r, "id"), req.Status, req.Message)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, sr)
}
