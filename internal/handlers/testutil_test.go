package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/claritel/admin-console/internal/platform"
	"github.com/claritel/admin-console/internal/session"
	"github.com/claritel/admin-console/internal/views"
	"github.com/claritel/admin-console/types"
)

// fixture wires the real router, session store, and renderer against a fake
// platform API, so tests drive the console exactly as a browser would.
type fixture struct {
	router   *chi.Mux
	sessions *session.Manager
	cookies  *session.CookieCodec
}

func passthrough(next http.Handler) http.Handler { return next }

func newFixture(t *testing.T, apiHandler http.Handler) *fixture {
	t.Helper()

	apiSrv := httptest.NewServer(apiHandler)
	t.Cleanup(apiSrv.Close)

	renderer, err := views.New()
	if err != nil {
		t.Fatalf("parse views: %v", err)
	}

	log := zerolog.Nop()
	api := platform.NewClient(apiSrv.URL, 5*time.Second)
	sessions := session.NewManager(time.Hour, 5*time.Minute)
	cookies := session.NewCookieCodec("test-secret", time.Hour, false)
	guard := NewGuard(sessions, cookies, renderer, log)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	AuthRouter(router, NewAuthHandler(api, sessions, cookies, renderer, log, guard), passthrough)
	UserRouter(router, NewUserHandler(api, renderer, log, guard))
	TenantRouter(router, NewTenantHandler(api, renderer, log, guard))

	return &fixture{router: router, sessions: sessions, cookies: cookies}
}

// signIn establishes a session directly and returns its browser cookie.
func (f *fixture) signIn(t *testing.T, user types.User, token string) (*http.Cookie, session.Session) {
	t.Helper()

	s := f.sessions.Establish(user, token)
	rec := httptest.NewRecorder()
	if err := f.cookies.Issue(rec, session.SessionCookie, s.ID); err != nil {
		t.Fatalf("issue cookie: %v", err)
	}
	return rec.Result().Cookies()[0], s
}

func (f *fixture) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name && c.MaxAge >= 0 && c.Value != "" {
			return c
		}
	}
	return nil
}

func wantRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %s, got %s", location, got)
	}
}

func apiData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func apiError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"errorMessage": message})
}

func tenantManager() types.User {
	return types.User{
		ID:         "u-1",
		FullName:   "Ada Admin",
		Email:      "ada@example.com",
		Role:       types.RoleSuperAdmin,
		Features:   []string{"tenant.management", "user.subadmin.create", "user.superadmin.create"},
		MFAEnabled: true,
		Status:     types.UserStatusActive,
	}
}
