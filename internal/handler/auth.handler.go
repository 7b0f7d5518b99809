package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"spark-service/internal/usecase"
	"spark-service/pkg/middleware"
	"spark-service/pkg/response"
	xerrors "spark-service/pkg/xerrors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyOTPRequest struct {
	Email   string `json:"email"`
	OTP     string `json:"otp"`
	Purpose string `json:"purpose"`
}

type otpRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req usecase.RegisterInput
	if !decode(w, r, &req) {
		return
	}
	req.Lang = h.lang(r)

	res, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, res)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.auth.Login(r.Context(), req.Email, req.Password, h.lang(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.OTP) == "" {
		response.Error(w, http.StatusBadRequest, "Email and OTP are required")
		return
	}

	device := r.Header.Get("X-Device-ID")
	if device == "" {
		device = r.UserAgent()
	}

	sess, err := h.auth.VerifyOTP(r.Context(), req.Email, strings.TrimSpace(req.OTP), req.Purpose, device)
	if errors.Is(err, xerrors.ErrInvalidOTP) {
		response.ErrorData(w, http.StatusUnauthorized, "Invalid or expired OTP", map[string]bool{"valid": false})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	response.JSON(w, http.StatusOK, sess)
}

// StoreOTP (re)issues a code for an existing account. The code is emailed,
// never returned.
func (h *Handler) StoreOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decode(w, r, &req) {
		return
	}
	exp, err := h.auth.RequestOTP(r.Context(), req.Email, req.Purpose, h.lang(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"otp_sent": true, "expires_at": exp})
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	p, err := h.auth.CurrentUser(r.Context(), uid)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	exp := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if err := h.auth.Logout(r.Context(), uid, claims.ID, exp); err != nil {
		h.writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "token", Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	response.JSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.auth.ChangePassword(r.Context(), uid, req.OldPassword, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.Email, strings.TrimSpace(req.OTP), req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"message": "Password reset"})
}
