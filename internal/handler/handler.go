package handler

import (
	"errors"
	"net/http"
	"strconv"

	"spark-service/internal/agents"
	"spark-service/internal/automation"
	"spark-service/internal/rate"
	"spark-service/pkg/middleware"
	"spark-service/pkg/response"
	xerrors "spark-service/pkg/xerrors"

	"github.com/go-chi/render"
	"go.uber.org/zap"
)

// Services groups everything the HTTP API calls into.
type Services struct {
	Auth         AuthService
	Profiles     ProfileService
	Requests     RequestService
	Certificates CertificateService
	Activities   ActivityService
	Metrics      MetricsService
	Agents       AgentRunner
	Workflows    WorkflowEngine
	Health       HealthChecker
	Languages    Languages
	Broadcaster  Broadcaster
}

type Handler struct {
	auth      AuthService
	profiles  ProfileService
	requests  RequestService
	certs     CertificateService
	activity  ActivityService
	metrics   MetricsService
	agents    AgentRunner
	workflows WorkflowEngine
	health    HealthChecker
	langs     Languages
	hub       Broadcaster
	logger    *zap.Logger
}

func New(s Services, logger *zap.Logger) *Handler {
	return &Handler{
		auth:      s.Auth,
		profiles:  s.Profiles,
		requests:  s.Requests,
		certs:     s.Certificates,
		activity:  s.Activities,
		metrics:   s.Metrics,
		agents:    s.Agents,
		workflows: s.Workflows,
		health:    s.Health,
		langs:     s.Languages,
		hub:       s.Broadcaster,
		logger:    logger,
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) lang(r *http.Request) string {
	l := r.URL.Query().Get("lang")
	if l == "" {
		l = r.Header.Get("Accept-Language")
	}
	if h.langs == nil {
		return "en"
	}
	return h.langs.Normalize(l)
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}

type statusRule struct {
	status int
	errs   []error
}

var statusRules = []statusRule{
	{http.StatusBadRequest, []error{
		xerrors.ErrInvalidRequest, xerrors.ErrInvalidInput, xerrors.ErrEmailRequired,
		xerrors.ErrPasswordRequired, xerrors.ErrNameRequired, xerrors.ErrPasswordMismatch,
		xerrors.ErrInvalidEmailFormat, xerrors.ErrPasswordTooShort, xerrors.ErrPasswordTooLong,
		xerrors.ErrInvalidPurpose, xerrors.ErrUnknownServiceType, xerrors.ErrInvalidPriority,
		xerrors.ErrHashRequired, xerrors.ErrInvalidOldPassword,
		agents.ErrMissingInput, agents.ErrUnknownAction, automation.ErrInvalidWorkflow,
	}},
	{http.StatusUnauthorized, []error{
		xerrors.ErrUnauthorized, xerrors.ErrInvalidCredentials, xerrors.ErrInvalidOTP,
		xerrors.ErrExpiredOTP, xerrors.ErrInvalidToken, xerrors.ErrExpiredToken, xerrors.ErrTokenRevoked,
	}},
	{http.StatusForbidden, []error{xerrors.ErrForbidden, xerrors.ErrEmailNotVerified}},
	{http.StatusNotFound, []error{
		xerrors.ErrNotFound, xerrors.ErrUserNotFound, agents.ErrAgentNotFound, automation.ErrWorkflowNotFound,
	}},
	{http.StatusConflict, []error{
		xerrors.ErrUserAlreadyExists, xerrors.ErrEmailAlreadyInUse, xerrors.ErrInvalidTransition,
		xerrors.ErrRequestNotIssuable, xerrors.ErrCertificateExists, automation.ErrWorkflowUnavailable,
	}},
	{http.StatusTooManyRequests, []error{xerrors.ErrTooManyOTPRequests, xerrors.ErrOTPCooldown}},
}

func statusFor(err error) int {
	var limited *rate.LimitError
	if errors.As(err, &limited) {
		return http.StatusTooManyRequests
	}
	for _, rule := range statusRules {
		for _, target := range rule.errs {
			if errors.Is(err, target) {
				return rule.status
			}
		}
	}
	return http.StatusInternalServerError
}

// writeError maps err onto a status code. Server errors are logged and
// replaced with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		response.Error(w, status, "Internal server error")
		return
	}
	var limited *rate.LimitError
	if errors.As(err, &limited) {
		w.Header().Set("Retry-After", strconv.Itoa(int(limited.RetryAfter.Seconds())))
	}
	response.Error(w, status, err.Error())
}
