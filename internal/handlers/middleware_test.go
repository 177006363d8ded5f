package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/claritel/admin-console/internal/session"
	"github.com/claritel/admin-console/types"
)

func TestGuardRedirectsWithoutCookie(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected")
	}))

	for _, path := range []string{"/dashboard", "/manage-users", "/manage-tenants", "/setup-2fa"} {
		rec := fx.get(path)
		wantRedirect(t, rec, "/")
	}
}

func TestGuardRejectsTamperedCookie(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected")
	}))

	foreign := session.NewCookieCodec("some-other-secret", time.Hour, false)
	cookie, _ := fx.signIn(t, tenantManager(), "tok-abc")

	// Re-sign the same session ID with a different secret.
	id, err := fx.cookies.Read(&http.Request{Header: http.Header{"Cookie": {cookie.String()}}}, session.SessionCookie)
	if err != nil {
		t.Fatalf("read cookie: %v", err)
	}
	forged := issueCookie(t, foreign, session.SessionCookie, id)

	rec := fx.get("/dashboard", forged)
	wantRedirect(t, rec, "/")
}

func TestGuardRejectsStaleCookie(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected")
	}))

	// A valid cookie whose server-side session no longer exists.
	cookie, s := fx.signIn(t, tenantManager(), "tok-abc")
	fx.sessions.Clear(s.ID)

	rec := fx.get("/dashboard", cookie)
	wantRedirect(t, rec, "/")
}

func TestGuardAllowsLiveSession(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	cookie, _ := fx.signIn(t, tenantManager(), "tok-abc")

	rec := fx.get("/dashboard", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Ada Admin") {
		t.Fatal("expected the signed-in user's name in the chrome")
	}
}

func TestPermissionGateForbidsTenantSection(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected")
	}))
	user := types.User{
		ID: "u-2", FullName: "Sam Sub", Email: "sam@example.com",
		Role: types.RoleSubAdmin, Features: []string{"user.subadmin.create"},
		MFAEnabled: true,
	}
	cookie, _ := fx.signIn(t, user, "tok-abc")

	rec := fx.get("/manage-tenants", cookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestPrivilegedRoleBypassesFeatureChecks(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiData(w, []types.Tenant{})
	}))
	user := types.User{
		ID: "u-root", FullName: "Root", Email: "root@example.com",
		Role: types.RolePlatformSuperAdmin, Features: nil, MFAEnabled: true,
	}
	cookie, _ := fx.signIn(t, user, "tok-abc")

	rec := fx.get("/manage-tenants", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for platform_super_admin, got %d", rec.Code)
	}
}

func TestExpiredAPITokenInvalidatesSession(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiError(w, http.StatusUnauthorized, "jwt expired")
	}))
	cookie, s := fx.signIn(t, tenantManager(), "tok-stale")

	rec := fx.get("/manage-users", cookie)
	wantRedirect(t, rec, "/")
	if _, ok := fx.sessions.Get(s.ID); ok {
		t.Fatal("a 401 from the API must clear the local session")
	}
}

func issueCookie(t *testing.T, codec *session.CookieCodec, name, id string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := codec.Issue(rec, name, id); err != nil {
		t.Fatalf("issue cookie: %v", err)
	}
	cs := rec.Result().Cookies()
	if len(cs) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cs))
	}
	return cs[0]
}
