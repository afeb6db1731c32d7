package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leaderforge/leaderforge-bfa-go/internal/domain"
	"github.com/leaderforge/leaderforge-bfa-go/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func validClaims(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    "leaderforge",
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

func TestSessionResolver_Resolve(t *testing.T) {
	store := acme()
	store.addUser(domain.User{
		ID: "S", Role: domain.RoleSupervisor, CompanyName: "Acme",
		Permissions: []string{"view_team"},
	})
	resolver := service.NewSessionResolver(store, testSecret, "leaderforge", zap.NewNop())

	sess, err := resolver.Resolve(context.Background(), signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("S")))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.UserID != "S" || sess.CompanyName != "Acme" || sess.Role != domain.RoleSupervisor {
		t.Errorf("unexpected session %+v", sess)
	}
	if len(sess.Permissions) != 1 {
		t.Errorf("expected permissions carried over, got %v", sess.Permissions)
	}
}

func TestSessionResolver_Rejects(t *testing.T) {
	store := acme()
	resolver := service.NewSessionResolver(store, testSecret, "leaderforge", zap.NewNop())

	expired := validClaims("A")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := validClaims("A")
	wrongIssuer.Issuer = "someone-else"

	tokens := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims("A")),
		"expired":      signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired),
		"wrong issuer": signToken(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer),
		"no subject":   signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("")),
		"unknown user": signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("ghost")),
		"hs512":        signToken(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims("A")),
	}
	for name, tok := range tokens {
		t.Run(name, func(t *testing.T) {
			_, err := resolver.Resolve(context.Background(), tok)
			var ue *domain.ErrUnauthorized
			if !errors.As(err, &ue) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestSessionResolver_StoreErrorIsNotUnauthorized(t *testing.T) {
	resolver := service.NewSessionResolver(brokenUsers{}, testSecret, "", zap.NewNop())

	_, err := resolver.Resolve(context.Background(), signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("A")))
	var ue *domain.ErrUnauthorized
	if errors.As(err, &ue) {
		t.Fatal("expected a store failure to surface as a server error")
	}
	if !errors.Is(err, errStoreDown) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}

type brokenUsers struct{}

func (brokenUsers) GetUser(context.Context, string) (*domain.User, error) { return nil, errStoreDown }
func (brokenUsers) ListUsers(context.Context, domain.UserQuery) ([]domain.User, error) {
	return nil, errStoreDown
}
