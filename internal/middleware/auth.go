package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"survey-drafts/internal/logger"
	"survey-drafts/internal/models"
)

const operatorKey ctxKey = "operator"

var ErrInvalidToken = errors.New("invalid or expired token")

// OperatorClaims is what the login service puts in the bearer token
type OperatorClaims struct {
	UID            int  `json:"uid"`
	PasswordChange bool `json:"pwd_change,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware resolves the bearer token into the current operator.
// A request without a token is anonymous, which the draft layer allows.
type AuthMiddleware struct {
	secret []byte
	log    *logger.Logger
}

func NewAuthMiddleware(secret string, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret), log: log.With("Middleware", "AuthMiddleware")}
}

func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		op, err := am.ParseToken(tokenString)
		if err != nil {
			am.log.Debug("rejected token", "request_id", GetRequestID(r.Context()), "error", err)
			WriteError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), op)))
	})
}

// ParseToken validates an HS256 token and returns its operator
func (am *AuthMiddleware) ParseToken(tokenString string) (*models.Operator, error) {
	if len(am.secret) == 0 {
		return nil, fmt.Errorf("%w: authentication is not configured", ErrInvalidToken)
	}

	claims := &OperatorClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UID <= 0 {
		return nil, ErrInvalidToken
	}

	return &models.Operator{
		ID:                 claims.UID,
		Username:           claims.Subject,
		MustChangePassword: claims.PasswordChange,
	}, nil
}

// SignToken issues a token for op. The real issuer is the login service;
// this exists for tooling and tests.
func SignToken(secret string, op *models.Operator, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := OperatorClaims{
		UID:            op.ID,
		PasswordChange: op.MustChangePassword,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func extractToken(r *http.Request) string {
	// browsers cannot set headers on a websocket handshake
	if q := r.URL.Query().Get("token"); q != "" {
		return q
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func WithOperator(ctx context.Context, op *models.Operator) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}

// OperatorFromContext returns nil for anonymous requests
func OperatorFromContext(ctx context.Context) *models.Operator {
	op, _ := ctx.Value(operatorKey).(*models.Operator)
	return op
}
