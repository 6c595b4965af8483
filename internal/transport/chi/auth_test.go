package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/metarepo/internal/domain"
)

type fakeResolver struct {
	tokens map[string]domain.Application
	err    error
}

func (f *fakeResolver) GetByToken(_ context.Context, token string) (domain.Application, error) {
	if f.err != nil {
		return domain.Application{}, f.err
	}
	app, ok := f.tokens[token]
	if !ok {
		return domain.Application{}, domain.ErrApplicationNotFound
	}
	return app, nil
}

func authedHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := applicationFrom(r.Context()); !ok {
			t.Error("expected application in request context")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_MissingHeader_401(t *testing.T) {
	mw := AuthMiddleware(&fakeResolver{})
	handler := mw(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/resources", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("missing header: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != codeUnauthorized {
		t.Errorf("error code: got %s, want %s", errResp.Code, codeUnauthorized)
	}
}

func TestAuthMiddleware_BasicScheme_401(t *testing.T) {
	mw := AuthMiddleware(&fakeResolver{})
	handler := mw(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/resources", http.NoBody)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("basic scheme: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_UnknownToken_401(t *testing.T) {
	mw := AuthMiddleware(&fakeResolver{tokens: map[string]domain.Application{}})
	handler := mw(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/resources", http.NoBody)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("unknown token: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_ResolverError_500(t *testing.T) {
	mw := AuthMiddleware(&fakeResolver{err: errors.New("store down")})
	handler := mw(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/resources", http.NoBody)
	req.Header.Set("Authorization", "Bearer any")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("resolver error: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestAuthMiddleware_ValidToken_InjectsApplication(t *testing.T) {
	mw := AuthMiddleware(&fakeResolver{tokens: map[string]domain.Application{
		"secret": domain.NewApplication(1, "app-uuid", "test"),
	}})
	handler := mw(authedHandler(t))

	req := httptest.NewRequest("GET", "/api/v1/resources", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("valid token: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_ExemptPaths(t *testing.T) {
	mw := AuthMiddleware(&fakeResolver{})
	handler := mw(okHandler())

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest("GET", path, http.NoBody)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("exempt path %s: got %d, want %d", path, rr.Code, http.StatusOK)
		}
	}
}

func TestPageParams(t *testing.T) {
	s := (&Server{defaultPageSize: 20, maxPageSize: 100})

	tests := []struct {
		name        string
		url         string
		wantPage    int
		wantPerPage int
	}{
		{"defaults", "/api/v1/resources", 1, 20},
		{"explicit", "/api/v1/resources?page=3&per_page=50", 3, 50},
		{"capped", "/api/v1/resources?per_page=500", 1, 100},
		{"zero kept", "/api/v1/resources?per_page=0", 1, 0},
		{"garbage falls back", "/api/v1/resources?page=x&per_page=-5", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, http.NoBody)
			page, perPage := s.pageParams(req)
			if page != tt.wantPage || perPage != tt.wantPerPage {
				t.Errorf("got %d/%d, want %d/%d", page, perPage, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}

func TestOrderParams(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/resources?order_by=title,-created_at&order_by=uuid", http.NoBody)
	got := orderParams(req)
	want := []string{"title", "-created_at", "uuid"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
