package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/claritel/admin-console/internal/platform"
	"github.com/claritel/admin-console/types"
)

func TestUsersListRendersTable(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users" {
			t.Errorf("unexpected API call: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-abc" {
			t.Errorf("expected session bearer token, got %q", got)
		}
		apiData(w, []types.User{
			{ID: "u-5", FullName: "Pat Person", Email: "pat@example.com", Role: types.RoleSubAdmin, Status: types.UserStatusActive},
		})
	}))
	cookie, _ := fx.signIn(t, tenantManager(), "tok-abc")

	rec := fx.get("/manage-users", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pat@example.com") {
		t.Fatal("expected the fetched user in the table")
	}
}

func TestUsersListEmptyState(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiData(w, []types.User{})
	}))
	cookie, _ := fx.signIn(t, tenantManager(), "tok-abc")

	rec := fx.get("/manage-users", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No users found") {
		t.Fatal("an empty fetch should render the empty state")
	}
}

func TestUsersListHidesCreateButtonsWithoutFeatures(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiData(w, []types.User{})
	}))
	user := types.User{
		ID: "u-2", FullName: "Sam Sub", Email: "sam@example.com",
		Role: types.RoleSubAdmin, Features: []string{"user.subadmin.create"},
		MFAEnabled: true,
	}
	cookie, _ := fx.signIn(t, user, "tok-abc")

	rec := fx.get("/manage-users", cookie)
	body := rec.Body.String()
	if strings.Contains(body, "Create Super Admin") {
		t.Fatal("super-admin creation must be hidden without the feature")
	}
	if !strings.Contains(body, "Create Sub Admin") {
		t.Fatal("sub-admin creation should show with the feature")
	}
}

func TestCreateSubAdminSubmitsPayload(t *testing.T) {
	var got platform.CreateUserInput
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/sub-admin" {
			t.Errorf("unexpected API call: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		apiData(w, types.User{ID: "u-9"})
	}))
	cookie, _ := fx.signIn(t, tenantManager(), "tok-abc")

	rec := fx.postForm("/manage-users/sub-admin", url.Values{
		"fullName": {"New Admin"},
		"email":    {"new@example.com"},
		"password": {"s3cret!pw"},
		"features": {"user.subadmin.create"},
	}, cookie)
	wantRedirect(t, rec, "/manage-users")

	if got.FullName != "New Admin" || got.Email != "new@example.com" || got.Password != "s3cret!pw" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if len(got.Features) != 1 || got.Features[0] != "user.subadmin.create" {
		t.Fatalf("unexpected features: %v", got.Features)
	}
}

func TestCreateSubAdminDropsUngrantableFeatures(t *testing.T) {
	var got platform.CreateUserInput
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		apiData(w, types.User{ID: "u-9"})
	}))
	cookie, _ := fx.signIn(t, tenantManager(), "tok-abc")

	// Forged extra checkboxes: a sub admin form only offers subadmin.create.
	rec := fx.postForm("/manage-users/sub-admin", url.Values{
		"fullName": {"New Admin"},
		"email":    {"new@example.com"},
		"password": {"s3cret!pw"},
		"features": {"user.subadmin.create", "tenant.management", "user.superadmin.create"},
	}, cookie)
	wantRedirect(t, rec, "/manage-users")

	if len(got.Features) != 1 || got.Features[0] != "user.subadmin.create" {
		t.Fatalf("ungrantable features must be dropped, got %v", got.Features)
	}
}

func TestCreateSuperAdminRequiresFeature(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected")
	}))
	user := types.User{
		ID: "u-2", FullName: "Sam Sub", Email: "sam@example.com",
		Role: types.RoleSubAdmin, Features: []string{"user.subadmin.create"},
		MFAEnabled: true,
	}
	cookie, _ := fx.signIn(t, user, "tok-abc")

	rec := fx.postForm("/manage-users/super-admin", url.Values{
		"fullName": {"Sneaky"},
		"email":    {"sneaky@example.com"},
		"password": {"pw"},
	}, cookie)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on a forged submission, got %d", rec.Code)
	}
}

func TestCreateUserServerErrorShownVerbatim(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiError(w, http.StatusConflict, "Email already in use")
	}))
	cookie, _ := fx.signIn(t, tenantManager(), "tok-abc")

	rec := fx.postForm("/manage-users/sub-admin", url.Values{
		"fullName": {"New Admin"},
		"email":    {"dupe@example.com"},
		"password": {"s3cret!pw"},
	}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Email already in use") {
		t.Fatal("server error text should be shown unmodified")
	}
	// A failed submission keeps the typed values.
	if !strings.Contains(body, "dupe@example.com") {
		t.Fatal("form input should survive a failed submission")
	}
}

func TestNewFormUnknownTypeRedirects(t *testing.T) {
	fx := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	cookie, _ := fx.signIn(t, tenantManager(), "tok-abc")

	rec := fx.get("/manage-users/new?type=other", cookie)
	wantRedirect(t, rec, "/manage-users")
}
