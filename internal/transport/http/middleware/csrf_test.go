package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newCSRFTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CSRFGuard(CSRFConfig{CookieTTL: time.Hour}, nil, nil))
	router.GET("/resource", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/resource", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestCSRFGuardAllowsSafeMethods(t *testing.T) {
	router := newCSRFTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET without tokens = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestCSRFGuardBlocksMissingTokens(t *testing.T) {
	router := newCSRFTestRouter()

	cases := []struct {
		name   string
		cookie string
		header string
	}{
		{"no tokens", "", ""},
		{"cookie only", "tok-abc", ""},
		{"header only", "", "tok-abc"},
		{"mismatch", "tok-abc", "tok-xyz"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/resource", nil)
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: tc.cookie})
			}
			if tc.header != "" {
				req.Header.Set(CSRFHeaderName, tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
			}
		})
	}
}

func TestCSRFGuardAllowsMatchingPair(t *testing.T) {
	router := newCSRFTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/resource", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "matching-token"})
	req.Header.Set(CSRFHeaderName, "matching-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestIssueCSRFTokenSetsCookieAndHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/csrf", func(c *gin.Context) {
		token, err := IssueCSRFToken(c, CSRFConfig{CookieTTL: time.Hour})
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"csrf_token": token})
	})

	req := httptest.NewRequest(http.MethodGet, "/csrf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CSRFCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("csrf cookie not set")
	}
	if !cookie.HttpOnly {
		t.Error("csrf cookie is not HttpOnly")
	}
	if header := rec.Header().Get(CSRFHeaderName); header != cookie.Value {
		t.Errorf("header token %q does not match cookie %q", header, cookie.Value)
	}
}
