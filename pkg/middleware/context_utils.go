package middleware

import (
	"context"
	"net/http"

	"spark-service/pkg/jwtutil"
)

type contextKey string

const (
	ContextUserID         contextKey = "userID"
	ContextEmail          contextKey = "email"
	ContextToken          contextKey = "token"
	ContextTokenID        contextKey = "tokenID"
	ContextTokenExpiry    contextKey = "tokenExpiry"
	ContextSessionPurpose contextKey = "purpose"
	ContextDeviceID       contextKey = "deviceID"
	ContextRole           contextKey = "role"
	ContextExtraData      contextKey = "extraData"
)

func GetUserID(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(ContextUserID).(string)
	return val, ok && val != ""
}

func GetEmail(ctx context.Context) string {
	val, _ := ctx.Value(ContextEmail).(string)
	return val
}

func GetRole(ctx context.Context) string {
	val, _ := ctx.Value(ContextRole).(string)
	return val
}

func GetClaims(ctx context.Context) (*jwtutil.Claims, bool) {
	val, ok := ctx.Value(claimsKey{}).(*jwtutil.Claims)
	return val, ok
}

type claimsKey struct{}

// WithClaims stores verified claims on ctx the same way the auth middleware does.
func WithClaims(ctx context.Context, claims *jwtutil.Claims, token string) context.Context {
	ctx = context.WithValue(ctx, claimsKey{}, claims)
	ctx = context.WithValue(ctx, ContextUserID, claims.UserID)
	ctx = context.WithValue(ctx, ContextEmail, claims.Email)
	ctx = context.WithValue(ctx, ContextToken, token)
	ctx = context.WithValue(ctx, ContextTokenID, claims.ID)
	ctx = context.WithValue(ctx, ContextDeviceID, claims.Device)
	ctx = context.WithValue(ctx, ContextRole, claims.Role)
	ctx = context.WithValue(ctx, ContextSessionPurpose, claims.SessionPurpose)
	if claims.ExpiresAt != nil {
		ctx = context.WithValue(ctx, ContextTokenExpiry, claims.ExpiresAt.Time)
	}
	if len(claims.ExtraData) > 0 {
		ctx = context.WithValue(ctx, ContextExtraData, claims.ExtraData)
	}
	return ctx
}

func setContextValues(r *http.Request, claims *jwtutil.Claims, token string) *http.Request {
	return r.WithContext(WithClaims(r.Context(), claims, token))
}
