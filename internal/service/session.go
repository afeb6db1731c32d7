package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ============================================================
// Sessions: bearer token to domain.Session
// ============================================================

// SessionClaims are the claims read from identity tokens.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SessionResolver verifies bearer tokens and loads the caller's user
// document to build the session passed into services.
type SessionResolver struct {
	users  port.UserReader
	secret []byte
	issuer string
	logger *zap.Logger
}

// NewSessionResolver creates a resolver for HS256 tokens signed with secret.
// A non-empty issuer is enforced.
func NewSessionResolver(users port.UserReader, secret, issuer string, logger *zap.Logger) *SessionResolver {
	return &SessionResolver{
		users:  users,
		secret: []byte(secret),
		issuer: issuer,
		logger: logger,
	}
}

// Resolve validates the token and returns the caller's session.
func (r *SessionResolver) Resolve(ctx context.Context, tokenString string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "SessionResolver.Resolve")
	defer span.End()

	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, &domain.ErrUnauthorized{Message: "missing bearer token"}
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	}, opts...)
	if err != nil {
		r.logger.Debug("session: token rejected", zap.Error(err))
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}

	user, err := r.users.GetUser(ctx, claims.Subject)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, &domain.ErrUnauthorized{Message: "unknown user"}
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}

	return &domain.Session{
		UserID:      user.ID,
		CompanyName: user.CompanyName,
		Role:        user.Role,
		Permissions: user.Permissions,
	}, nil
}
