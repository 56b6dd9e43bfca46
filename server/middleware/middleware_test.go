package middleware_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/account"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticAuth map[string]account.Principal

func (a staticAuth) Authenticate(_ context.Context, token string) (account.Principal, error) {
	if p, ok := a[token]; ok {
		return p, nil
	}
	return account.Principal{}, apperrors.Forbidden("")
}

func respond(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return body.Error
}

func TestAuth(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Auth(staticAuth{"good": {ID: 7, Username: "alice"}}, respond))
	r.GET("/me", func(c *gin.Context) {
		p, _ := middleware.Principal(c)
		c.String(http.StatusOK, p.Username)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusForbidden},
		{"valid token", "Bearer good", http.StatusOK},
		{"lower-case scheme", "bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want == http.StatusOK && rr.Body.String() != "alice" {
				t.Errorf("body = %q", rr.Body.String())
			}
			if tt.want != http.StatusOK && errorBody(t, rr) == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestIDFromContext(c.Request.Context()))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	id := rr.Header().Get(middleware.HeaderRequestID)
	if id == "" || rr.Body.String() != id {
		t.Errorf("generated id %q, context id %q", id, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "abc-123")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if got := rr.Header().Get(middleware.HeaderRequestID); got != "abc-123" {
		t.Errorf("propagated id = %q", got)
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Recovery(logger.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("test panic") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := errorBody(t, rr); got != "internal server error" {
		t.Errorf("error = %q", got)
	}
}

func TestBodySizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(middleware.BodySizeLimit(8))
	r.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		c.Status(http.StatusOK)
	})

	tests := []struct {
		body string
		want int
	}{
		{"small", http.StatusOK},
		{"far too large a body", http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))
		if rr.Code != tt.want {
			t.Errorf("body %q: status = %d, want %d", tt.body, rr.Code, tt.want)
		}
	}
}

func TestRequestLogger_NilMetrics(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestLogger(logger.NewNop(), nil))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	for _, path := range []string{"/health", "/fail", "/missing"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if rr.Code == 0 {
			t.Errorf("%s: no status", path)
		}
	}
}
