package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contest_registry/internal/common"
	"contest_registry/internal/common/security"
	"contest_registry/internal/domain/model"
	"contest_registry/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
)

func protected(min model.Role) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := GetUserIDFromContext(r.Context())
		if id == 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return jwtauth.Verifier(security.TokenAuth)(Authenticator(RequireRole(min)(ok)))
}

func TestRequireRole(t *testing.T) {
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour}
	security.InitJWT()

	token := func(role model.Role) string {
		tok, err := security.GenerateToken(7, string(role))
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		return tok
	}

	tests := []struct {
		name   string
		min    model.Role
		header string
		want   int
	}{
		{"no token", model.RoleViewer, "", http.StatusUnauthorized},
		{"garbage token", model.RoleViewer, "Bearer nope", http.StatusUnauthorized},
		{"viewer reads", model.RoleViewer, "Bearer " + token(model.RoleViewer), http.StatusNoContent},
		{"viewer cannot edit", model.RoleEditor, "Bearer " + token(model.RoleViewer), http.StatusForbidden},
		{"admin edits", model.RoleEditor, "Bearer " + token(model.RoleAdmin), http.StatusNoContent},
		{"editor cannot delete", model.RoleAdmin, "Bearer " + token(model.RoleEditor), http.StatusForbidden},
		{"unknown role", model.RoleViewer, "Bearer " + token("owner"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected(tt.min).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

type fakeUsers map[uint]model.User

func (f fakeUsers) ActiveUser(_ context.Context, id uint) (*model.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, common.ErrUnauthorized
	}
	if !u.IsActive {
		return nil, common.ErrForbidden
	}
	return &u, nil
}

func TestAuthenticatorUsesStoredAccount(t *testing.T) {
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour}
	security.InitJWT()
	SetUserLookup(fakeUsers{
		1: {ID: 1, Role: model.RoleViewer, IsActive: true},
		2: {ID: 2, Role: model.RoleAdmin, IsActive: false},
		3: {ID: 3, Role: model.RoleEditor, IsActive: true},
	})
	t.Cleanup(func() { SetUserLookup(nil) })

	tests := []struct {
		name   string
		userID uint
		claim  model.Role
		min    model.Role
		want   int
	}{
		{"demoted since issue", 1, model.RoleAdmin, model.RoleEditor, http.StatusForbidden},
		{"deactivated since issue", 2, model.RoleAdmin, model.RoleViewer, http.StatusForbidden},
		{"deleted since issue", 9, model.RoleAdmin, model.RoleViewer, http.StatusUnauthorized},
		{"promoted since issue", 3, model.RoleViewer, model.RoleEditor, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := security.GenerateToken(tt.userID, string(tt.claim))
			if err != nil {
				t.Fatalf("token: %v", err)
			}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			rec := httptest.NewRecorder()
			protected(tt.min).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}
