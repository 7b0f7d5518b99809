package handler

import (
	"net/http"

	"spark-service/internal/agents"
	"spark-service/pkg/response"

	"github.com/go-chi/chi/v5"
)

type agentWorkflowRequest struct {
	Steps []agents.Step `json:"steps"`
}

func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.agents.List())
}

func (h *Handler) RunAgentTask(w http.ResponseWriter, r *http.Request) {
	var task agents.Task
	if !decode(w, r, &task) {
		return
	}
	if task.Action == "" {
		response.Error(w, http.StatusBadRequest, "action is required")
		return
	}
	if task.Input == nil {
		task.Input = map[string]any{}
	}
	if _, ok := task.Input["lang"]; !ok {
		task.Input["lang"] = h.lang(r)
	}

	name := chi.URLParam(r, "agent")
	out, err := h.agents.Execute(r.Context(), name, task)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"agent": name, "action": task.Action, "result": out})
}

func (h *Handler) RunAgentWorkflow(w http.ResponseWriter, r *http.Request) {
	var req agentWorkflowRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Steps) == 0 {
		response.Error(w, http.StatusBadRequest, "steps are required")
		return
	}
	results, err := h.agents.RunWorkflow(r.Context(), req.Steps)
	if err != nil {
		status := statusFor(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			msg = "Internal server error"
		}
		response.ErrorData(w, status, msg, map[string]any{"results": results})
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"results": results})
}
