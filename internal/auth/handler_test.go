package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/task-manager/internal/storage/memory"
)

type testEnv struct {
	router *gin.Engine
	svc    *Service
}

func newTestEnv(t *testing.T, opts HandlerOptions) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := newTestService(t, memory.New())
	h := NewHandler(svc, opts)

	router := gin.New()
	group := router.Group("/api/auth")
	group.POST("/register", h.Register)
	group.POST("/login", h.Login)
	group.POST("/logout", RequireLogin(svc.Tokens()), h.Logout)
	router.GET("/whoami", RequireLogin(svc.Tokens()), func(c *gin.Context) {
		fromCtx, _ := UserIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"gin": UserID(c), "ctx": fromCtx})
	})
	return &testEnv{router: router, svc: svc}
}

func (e *testEnv) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response headers: %v", CookieName, rec.Header())
	return nil
}

func TestRegisterHandlerSuccess(t *testing.T) {
	env := newTestEnv(t, HandlerOptions{})

	rec := env.do(http.MethodPost, "/api/auth/register", `{"name":"Ana","email":"ana@x.com","password":"p1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Message string                 `json:"message"`
		User    map[string]interface{} `json:"user"`
		Token   string                 `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload.User["email"] != "ana@x.com" || payload.User["name"] != "Ana" || payload.User["id"] == "" {
		t.Fatalf("unexpected user: %#v", payload.User)
	}
	if len(payload.User) != 3 {
		t.Fatalf("user must only expose id/name/email: %#v", payload.User)
	}
	if strings.Contains(rec.Body.String(), "$2a$") || strings.Contains(strings.ToLower(rec.Body.String()), "password") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
	if payload.Message == "" || payload.Token == "" {
		t.Fatalf("missing message or token: %s", rec.Body.String())
	}

	cookie := sessionCookie(t, rec)
	if cookie.Value != payload.Token {
		t.Fatal("cookie value should equal token")
	}
	if !cookie.HttpOnly || cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie attributes: %+v", cookie)
	}
}

func TestRegisterHandlerProductionCookie(t *testing.T) {
	env := newTestEnv(t, HandlerOptions{Production: true})

	rec := env.do(http.MethodPost, "/api/auth/register", `{"name":"Ana","email":"ana@x.com","password":"p1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	cookie := sessionCookie(t, rec)
	if !cookie.Secure || cookie.SameSite != http.SameSiteNoneMode || !cookie.HttpOnly {
		t.Fatalf("unexpected production cookie: %+v", cookie)
	}
}

func TestRegisterHandlerErrors(t *testing.T) {
	env := newTestEnv(t, HandlerOptions{})

	if rec := env.do(http.MethodPost, "/api/auth/register", `{"name":"Ana","email":"ana@x.com","password":"p1"}`); rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	tests := []struct {
		name string
		body string
	}{
		{"duplicate", `{"name":"Ana","email":"ana@x.com","password":"p1"}`},
		{"two ats", `{"name":"A","email":"a@b@c","password":"p"}`},
		{"missing", `{"email":"b@x.com"}`},
		{"not json", `not-json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/auth/register", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
			}
			var payload map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if payload["error"] == "" {
				t.Fatalf("expected error message: %s", rec.Body.String())
			}
		})
	}
}

func TestLoginHandlerIdenticalFailures(t *testing.T) {
	env := newTestEnv(t, HandlerOptions{})
	env.do(http.MethodPost, "/api/auth/register", `{"name":"Ana","email":"ana@x.com","password":"p1"}`)

	wrong := env.do(http.MethodPost, "/api/auth/login", `{"email":"ana@x.com","password":"bad"}`)
	unknown := env.do(http.MethodPost, "/api/auth/login", `{"email":"ghost@x.com","password":"p1"}`)

	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected statuses: %d / %d", wrong.Code, unknown.Code)
	}
	if !bytes.Equal(wrong.Body.Bytes(), unknown.Body.Bytes()) {
		t.Fatalf("bodies differ: %s vs %s", wrong.Body.String(), unknown.Body.String())
	}
	if len(wrong.Result().Cookies()) != 0 {
		t.Fatal("failed login must not set a cookie")
	}
}

func TestLoginHandlerSuccess(t *testing.T) {
	env := newTestEnv(t, HandlerOptions{})
	env.do(http.MethodPost, "/api/auth/register", `{"name":"Ana","email":"ana@x.com","password":"p1"}`)

	rec := env.do(http.MethodPost, "/api/auth/login", `{"email":"ana@x.com","password":"p1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	var payload struct {
		User  map[string]string `json:"user"`
		Token string            `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	claims, err := env.svc.Tokens().Verify(payload.Token)
	if err != nil {
		t.Fatalf("token should verify: %v", err)
	}
	if claims.ID != payload.User["id"] {
		t.Fatalf("token id %q != user id %q", claims.ID, payload.User["id"])
	}
	sessionCookie(t, rec)
}

func TestLoginHandlerLockout(t *testing.T) {
	env := newTestEnv(t, HandlerOptions{Limiter: NewLoginLimiter(2)})
	env.do(http.MethodPost, "/api/auth/register", `{"name":"Ana","email":"ana@x.com","password":"p1"}`)

	for i := 0; i < 2; i++ {
		if rec := env.do(http.MethodPost, "/api/auth/login", `{"email":"ana@x.com","password":"bad"}`); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: unexpected status %d", i, rec.Code)
		}
	}

	rec := env.do(http.MethodPost, "/api/auth/login", `{"email":"ana@x.com","password":"p1"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestLogoutRequiresSession(t *testing.T) {
	env := newTestEnv(t, HandlerOptions{})

	rec := env.do(http.MethodPost, "/api/auth/logout", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t, HandlerOptions{})
	reg := env.do(http.MethodPost, "/api/auth/register", `{"name":"Ana","email":"ana@x.com","password":"p1"}`)
	cookie := sessionCookie(t, reg)

	rec := env.do(http.MethodPost, "/api/auth/logout", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	cleared := sessionCookie(t, rec)
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("cookie not cleared: %+v", cleared)
	}
	if cleared.SameSite != http.SameSiteStrictMode {
		t.Fatalf("logout clears with SameSite=Strict, got %v", cleared.SameSite)
	}

	// トークン自体は失効しない
	if rec := env.do(http.MethodGet, "/whoami", "", cookie); rec.Code != http.StatusOK {
		t.Fatalf("token should remain valid after logout, got %d", rec.Code)
	}
}

func TestRequireLogin(t *testing.T) {
	env := newTestEnv(t, HandlerOptions{})
	reg := env.do(http.MethodPost, "/api/auth/register", `{"name":"Ana","email":"ana@x.com","password":"p1"}`)
	cookie := sessionCookie(t, reg)

	expiredCodec := newTestCodec(t, "test-secret")
	expiredCodec.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, err := expiredCodec.Issue(Claims{ID: "u1"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	forged, err := newTestCodec(t, "other-secret").Issue(Claims{ID: "u1"})
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	tests := []struct {
		name   string
		cookie *http.Cookie
		status int
	}{
		{"missing", nil, http.StatusForbidden},
		{"empty", &http.Cookie{Name: CookieName, Value: ""}, http.StatusForbidden},
		{"garbage", &http.Cookie{Name: CookieName, Value: "garbage"}, http.StatusUnauthorized},
		{"expired", &http.Cookie{Name: CookieName, Value: expired}, http.StatusUnauthorized},
		{"forged", &http.Cookie{Name: CookieName, Value: forged}, http.StatusUnauthorized},
		{"valid", cookie, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cookies []*http.Cookie
			if tt.cookie != nil {
				cookies = append(cookies, tt.cookie)
			}
			rec := env.do(http.MethodGet, "/whoami", "", cookies...)
			if rec.Code != tt.status {
				t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
			}
			var payload map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("failed to parse response: %v", err)
			}
			if tt.status != http.StatusOK {
				if payload["error"] == "" {
					t.Fatalf("expected error body: %s", rec.Body.String())
				}
				return
			}
			if payload["gin"] == "" || payload["gin"] != payload["ctx"] {
				t.Fatalf("identity not propagated: %#v", payload)
			}
		})
	}
}
