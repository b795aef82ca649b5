package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
)

type stubTokenVerifier struct {
	token    *firebaseauth.Token
	err      error
	received string
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	s.received = idToken
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func serve(t *testing.T, authn *Authenticator, header string, roles ...string) (*httptest.ResponseRecorder, *Identity) {
	t.Helper()
	var seen *Identity
	handler := authn.RequireRole(roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("expected identity in context")
		}
		seen = identity
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireRoleAllowsAdminClaim(t *testing.T) {
	verifier := &stubTokenVerifier{token: &firebaseauth.Token{
		UID:    "uid-1",
		Claims: map[string]interface{}{"role": []interface{}{"Staff", "admin"}, "email": "owner@fruitamruth.in"},
	}}
	rec, identity := serve(t, NewAuthenticator(verifier), "Bearer token-123", RoleAdmin)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if verifier.received != "token-123" {
		t.Fatalf("expected token forwarded, got %q", verifier.received)
	}
	if identity.UID != "uid-1" || identity.Email != "owner@fruitamruth.in" || !identity.HasRole(RoleStaff) {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestRequireRoleAcceptsBooleanAdminFlag(t *testing.T) {
	verifier := &stubTokenVerifier{token: &firebaseauth.Token{UID: "uid-2", Claims: map[string]interface{}{"admin": true}}}
	rec, identity := serve(t, NewAuthenticator(verifier), "bearer abc", RoleAdmin)
	if rec.Code != http.StatusNoContent || !identity.HasRole(RoleAdmin) {
		t.Fatalf("expected admin flag honoured, got %d %+v", rec.Code, identity)
	}
}

func TestRequireRoleRejectsMissingHeader(t *testing.T) {
	rec, _ := serve(t, NewAuthenticator(&stubTokenVerifier{}), "", RoleAdmin)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["error"] != "unauthenticated" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRequireRoleRejectsInvalidToken(t *testing.T) {
	verifier := &stubTokenVerifier{err: errors.New("bad signature")}
	rec, _ := serve(t, NewAuthenticator(verifier), "Bearer nope", RoleAdmin)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRoleRejectsInsufficientRole(t *testing.T) {
	verifier := &stubTokenVerifier{token: &firebaseauth.Token{UID: "uid-3", Claims: map[string]interface{}{"role": "staff"}}}
	rec, _ := serve(t, NewAuthenticator(verifier), "Bearer abc", RoleAdmin)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireRoleCustomClaim(t *testing.T) {
	verifier := &stubTokenVerifier{token: &firebaseauth.Token{UID: "uid-4", Claims: map[string]interface{}{"roles": []string{"admin"}}}}
	rec, _ := serve(t, NewAuthenticator(verifier, WithRoleClaim("roles")), "Bearer abc", RoleAdmin)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected custom claim honoured, got %d", rec.Code)
	}
}
