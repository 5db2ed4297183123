package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authedHandler(t *testing.T, keys []string) (http.Handler, *bool) {
	t.Helper()
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	return BearerAuthMiddleware(keys)(next), &reached
}

func TestBearerAuth_DisabledWhenNoKeys(t *testing.T) {
	for _, keys := range [][]string{nil, {}, {""}} {
		h, reached := authedHandler(t, keys)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/turn", nil))

		if !*reached || rec.Code != http.StatusOK {
			t.Errorf("keys %v: pass-through failed, status = %d", keys, rec.Code)
		}
	}
}

func TestBearerAuth_ExemptPaths(t *testing.T) {
	for _, path := range []string{"/healthz", "/metrics"} {
		h, reached := authedHandler(t, []string{"secret"})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if !*reached {
			t.Errorf("%s blocked despite exemption, status = %d", path, rec.Code)
		}
	}
}

func TestBearerAuth_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic c2VjcmV0"},
		{"wrong key", "Bearer wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, reached := authedHandler(t, []string{"secret"})

			req := httptest.NewRequest(http.MethodPost, "/v1/turn", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if *reached || rec.Code != http.StatusUnauthorized {
				t.Errorf("reached = %v, status = %d, want 401", *reached, rec.Code)
			}
		})
	}
}

func TestBearerAuth_ValidKey(t *testing.T) {
	h, reached := authedHandler(t, []string{"secret", "other"})

	req := httptest.NewRequest(http.MethodPost, "/v1/turn", nil)
	req.Header.Set("Authorization", "Bearer other")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !*reached || rec.Code != http.StatusOK {
		t.Errorf("valid key rejected, status = %d", rec.Code)
	}
}
