package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		allowed     []string
		origin      string
		wantOrigin  string
		credentials bool
	}{
		{name: "listed origin", allowed: []string{"https://app.example.com"}, origin: "https://app.example.com", wantOrigin: "https://app.example.com", credentials: true},
		{name: "unlisted origin", allowed: []string{"https://app.example.com"}, origin: "https://evil.example.com"},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://anywhere.example.com", wantOrigin: "*"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tc.allowed))
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tc.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("allow origin = %q, want %q", got, tc.wantOrigin)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tc.credentials {
				t.Fatalf("credentials = %v, want %v", got, tc.credentials)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"*"}))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst not allowed")
	}
	if rl.Allow("a") {
		t.Fatal("third request within window allowed")
	}
	if !rl.Allow("b") {
		t.Fatal("separate key throttled")
	}

	if n := rl.Sweep(time.Now()); n != 0 {
		t.Fatalf("swept %d fresh visitors", n)
	}
	if n := rl.Sweep(time.Now().Add(4 * time.Hour)); n != 2 {
		t.Fatalf("swept %d stale visitors, want 2", n)
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRateLimiter(1, time.Hour).Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 2)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}
