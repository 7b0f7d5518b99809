package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"spark-service/pkg/cache"
	"spark-service/pkg/jwtutil"
	"spark-service/pkg/response"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// RevokedNamespace holds the jti of every token that was logged out.
	RevokedNamespace = "revoked_tokens"
	// TokensValidAfterNamespace maps a user id to the unix second before
	// which none of that user's tokens are accepted.
	TokensValidAfterNamespace = "tokens_valid_after"
)

type AuthMiddleware struct {
	verifier *jwtutil.Verifier
	cache    *cache.Cache
	logger   *zap.Logger
}

func NewAuthMiddleware(verifier *jwtutil.Verifier, cache *cache.Cache, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, cache: cache, logger: logger}
}

func (am *AuthMiddleware) authenticate(w http.ResponseWriter, r *http.Request) (*jwtutil.Claims, string, bool) {
	token := extractToken(r)
	if token == "" {
		response.Error(w, http.StatusUnauthorized, "No token provided")
		return nil, "", false
	}

	claims, err := am.verifier.ParseAndValidate(token)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Invalid or expired token")
		return nil, "", false
	}

	if am.cache != nil && claims.ID != "" {
		revoked, err := am.cache.Exists(r.Context(), RevokedNamespace, claims.ID)
		if err != nil {
			// redis down: the signature check already passed
			am.logger.Warn("revocation lookup failed", zap.String("jti", claims.ID), zap.Error(err))
		} else if revoked {
			response.Error(w, http.StatusUnauthorized, "Session has been logged out")
			return nil, "", false
		}
	}

	if am.issuedBeforeCutoff(r.Context(), claims) {
		response.Error(w, http.StatusUnauthorized, "Session expired after a password change")
		return nil, "", false
	}

	return claims, token, true
}

func (am *AuthMiddleware) issuedBeforeCutoff(ctx context.Context, claims *jwtutil.Claims) bool {
	if am.cache == nil || claims.UserID == "" {
		return false
	}
	raw, err := am.cache.Get(ctx, TokensValidAfterNamespace, claims.UserID)
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		am.logger.Warn("token cutoff lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		return false
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	if claims.IssuedAt == nil {
		return true
	}
	return claims.IssuedAt.Unix() < cutoff
}

// Require authenticates the caller.
func (am *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, token, ok := am.authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, setContextValues(r, claims, token))
	})
}

// RequireRoles authenticates the caller and checks the role claim.
func (am *AuthMiddleware) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, token, ok := am.authenticate(w, r)
			if !ok {
				return
			}
			if !slices.Contains(roles, claims.Role) {
				am.logger.Info("role rejected",
					zap.String("user_id", claims.UserID),
					zap.String("role", claims.Role),
					zap.Strings("allowed", roles))
				response.Error(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, setContextValues(r, claims, token))
		})
	}
}
