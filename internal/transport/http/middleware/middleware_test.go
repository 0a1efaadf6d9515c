package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gopherai-rag/internal/pkg/jwtutil"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", handlers...)
	return r
}

func TestAuthJWT(t *testing.T) {
	var seen uint
	r := newEngine(AuthJWT("secret"), func(c *gin.Context) {
		seen = UserID(c)
		c.Status(http.StatusNoContent)
	})

	token, err := jwtutil.GenerateToken("secret", time.Hour, 42, "ada")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
		})
	}
	if seen != 42 {
		t.Fatalf("expected user id 42 in context, got %d", seen)
	}
}

func TestLoggerPropagatesRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newEngine(Logger(zap.New(core)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "req-1" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	if logs.Len() != 2 {
		t.Fatalf("expected start and finish entries, got %d", logs.Len())
	}
	for _, entry := range logs.All() {
		if entry.ContextMap()["request_id"] != "req-1" {
			t.Fatalf("entry %q lacks request id", entry.Message)
		}
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestRecovery(t *testing.T) {
	r := newEngine(Recovery(), func(*gin.Context) { panic("boom") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
