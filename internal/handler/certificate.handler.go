package handler

import (
	"fmt"
	"net/http"

	"spark-service/pkg/middleware"
	"spark-service/pkg/response"

	"github.com/go-chi/chi/v5"
)

type issueRequest struct {
	RequestID string `json:"request_id"`
}

type verifyRequest struct {
	Hash string `json:"hash"`
}

func (h *Handler) IssueCertificate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req issueRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		response.Error(w, http.StatusBadRequest, "request_id is required")
		return
	}
	cert, err := h.certs.Issue(r.Context(), uid, req.RequestID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, cert)
}

func (h *Handler) ListCertificates(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	certs, err := h.certs.ListMine(r.Context(), uid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, certs)
}

func (h *Handler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	cert, err := h.certs.Get(r.Context(), uid, middleware.GetRole(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, cert)
}

func (h *Handler) DownloadCertificate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	doc, err := h.certs.Download(r.Context(), uid, middleware.GetRole(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".json"))
	response.JSON(w, http.StatusOK, doc)
}

// VerifyCertificate is public: anyone holding a hash can check it.
func (h *Handler) VerifyCertificate(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.certs.Verify(r.Context(), req.Hash)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}
