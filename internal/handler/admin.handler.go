package handler

import (
	"net/http"
	"strings"

	"spark-service/internal/domain"
	"spark-service/internal/usecase"
	"spark-service/pkg/response"
)

type dbQueryRequest struct {
	Query  string         `json:"query"`
	Params map[string]any `json:"params"`
}

type announcementRequest struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rep := h.health.Check(r.Context())
	status := http.StatusOK
	if rep.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, status, rep)
}

// TestDB reports whether the database answers, for the admin console.
func (h *Handler) TestDB(w http.ResponseWriter, r *http.Request) {
	p := h.health.Database(r.Context())
	msg := "Connection succeeded"
	if !p.Connected {
		msg = "Connection failed"
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"connected":  p.Connected,
		"latency_ms": p.LatencyMS,
		"message":    msg,
	})
}

func (h *Handler) QueryDB(w http.ResponseWriter, r *http.Request) {
	var req dbQueryRequest
	if !decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Query)
	out, err := h.metrics.RunNamedQuery(r.Context(), name, req.Params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"query": name, "result": out})
}

func (h *Handler) ListQueries(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, usecase.NamedQueries())
}

func (h *Handler) SystemMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.metrics.SystemMetrics(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, m)
}

func (h *Handler) ListLanguages(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.langs.Languages())
}

// Announce pushes an admin notice to every open websocket.
func (h *Handler) Announce(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if !decode(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		response.Error(w, http.StatusBadRequest, "Title is required")
		return
	}
	delivered := h.hub.Broadcast(domain.Notification{
		Type:  "announcement",
		Title: req.Title,
		Body:  strings.TrimSpace(req.Body),
		Data:  req.Data,
	})
	response.JSON(w, http.StatusOK, map[string]any{"delivered": delivered})
}
