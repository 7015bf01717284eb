package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kailas-cloud/paperdex/internal/domain/visibility"
)

func authProbe(got *visibility.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = VisibilityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestPrincipalAuth_NoHeaderIsAnonymous(t *testing.T) {
	var got visibility.Context
	handler := PrincipalAuth(map[string]int64{"tok": 7})(authProbe(&got))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=x", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if got.Authenticated() {
		t.Error("missing header should resolve to anonymous")
	}
}

func TestPrincipalAuth_ValidToken(t *testing.T) {
	var got visibility.Context
	handler := PrincipalAuth(map[string]int64{"tok": 7})(authProbe(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=x", nil)
	req.Header.Set("Authorization", "Bearer tok")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if id, ok := got.PrincipalID(); !ok || id != 7 {
		t.Errorf("principal %d/%v, want 7/true", id, ok)
	}
}

func TestPrincipalAuth_UnknownTokenRejected(t *testing.T) {
	var got visibility.Context
	handler := PrincipalAuth(map[string]int64{"tok": 7})(authProbe(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=x", nil)
	req.Header.Set("Authorization", "Bearer wrong")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestPrincipalAuth_NonBearerSchemeRejected(t *testing.T) {
	var got visibility.Context
	handler := PrincipalAuth(map[string]int64{"tok": 7})(authProbe(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=x", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestPrincipalAuth_ExemptPaths(t *testing.T) {
	handler := PrincipalAuth(map[string]int64{"tok": 7})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer wrong")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d, want exempt 200", path, rec.Code)
		}
	}
}

func TestVisibilityFromContext_DefaultAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if VisibilityFromContext(req.Context()).Authenticated() {
		t.Error("bare context should read as anonymous")
	}
}
