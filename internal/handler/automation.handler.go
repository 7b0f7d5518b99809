package handler

import (
	"errors"
	"io"
	"net/http"

	"spark-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.workflows.List())
}

func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflows.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, wf)
}

// TriggerWorkflow runs the workflow synchronously. The body, if any, is the
// trigger data.
func (h *Handler) TriggerWorkflow(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	if err := render.DecodeJSON(r.Body, &data); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	job, err := h.workflows.Trigger(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, job)
}

func (h *Handler) PauseWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflows.Pause(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, wf)
}

func (h *Handler) ResumeWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.workflows.Resume(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, wf)
}

func (h *Handler) WorkflowStats(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.workflows.Stats())
}

func (h *Handler) WorkflowJobs(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.workflows.Jobs(queryInt(r, "limit", 20)))
}
