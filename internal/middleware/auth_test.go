package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func adminHandler(t *testing.T, token string, reach bool) http.Handler {
	t.Helper()
	return RequireAdmin(token)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !reach {
			t.Fatal("should not reach handler")
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRequireAdminValidToken(t *testing.T) {
	handler := adminHandler(t, "secret-token", true)

	req := httptest.NewRequest("GET", "/api/admin/rules", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAdminWrongToken(t *testing.T) {
	handler := adminHandler(t, "secret-token", false)

	req := httptest.NewRequest("GET", "/api/admin/rules", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdminMissingHeader(t *testing.T) {
	handler := adminHandler(t, "secret-token", false)

	req := httptest.NewRequest("GET", "/api/admin/rules", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdminNotBearer(t *testing.T) {
	handler := adminHandler(t, "secret-token", false)

	req := httptest.NewRequest("GET", "/api/admin/rules", nil)
	req.Header.Set("Authorization", "Basic secret-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdminDisabled(t *testing.T) {
	handler := adminHandler(t, "", false)

	req := httptest.NewRequest("GET", "/api/admin/rules", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
