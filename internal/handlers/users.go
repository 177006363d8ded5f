package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/claritel/admin-console/internal/permissions"
	"github.com/claritel/admin-console/internal/platform"
	"github.com/claritel/admin-console/internal/views"
	"github.com/claritel/admin-console/types"
)

// UserHandler serves the admin-user screens: the listing and the super/sub
// admin create forms.
type UserHandler struct {
	api   *platform.Client
	views *views.Renderer
	log   zerolog.Logger
	guard *Guard
}

func NewUserHandler(api *platform.Client, v *views.Renderer, log zerolog.Logger, guard *Guard) *UserHandler {
	return &UserHandler{api: api, views: v, log: log, guard: guard}
}

// UserRouter registers the guarded user-management routes.
func UserRouter(r chi.Router, h *UserHandler) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireSession)
		r.Get("/manage-users", h.List)
		r.Get("/manage-users/new", h.NewForm)
		r.With(h.guard.RequirePermission(permissions.CreateSuperAdmin)).
			Post("/manage-users/super-admin", h.CreateSuperAdmin)
		r.With(h.guard.RequirePermission(permissions.CreateSubAdmin)).
			Post("/manage-users/sub-admin", h.CreateSubAdmin)
	})
}

// Feature is a grantable capability shown as a checkbox on the create form.
type Feature struct {
	Code  string
	Label string
}

var superAdminFeatures = []Feature{
	{Code: permissions.CreateSubAdmin, Label: "Create Sub Admin"},
	{Code: permissions.CreateSuperAdmin, Label: "Create Super Admin"},
	{Code: permissions.TenantManagement, Label: "Tenant Management"},
}

var subAdminFeatures = []Feature{
	{Code: permissions.CreateSubAdmin, Label: "Create Sub Admin"},
}

type usersPage struct {
	views.Base
	Users          []types.User
	CanCreateSuper bool
	CanCreateSub   bool
}

type userFormPage struct {
	views.Base
	Heading           string
	Action            string
	FullName          string
	Email             string
	AvailableFeatures []Feature
}

// List fetches all users and renders the table; an empty fetch renders the
// empty state, a failed one the error banner. Always server-truth: the
// screen re-fetches after every mutation.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFrom(r.Context())

	page := usersPage{
		Base:           views.Base{Title: "Manage Users", Nav: navFor(s, "users")},
		CanCreateSuper: permissions.Has(&s.User, permissions.CreateSuperAdmin),
		CanCreateSub:   permissions.Has(&s.User, permissions.CreateSubAdmin),
	}

	users, err := h.api.ListUsers(r.Context(), s.Token)
	if err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			h.guard.InvalidateSession(w, r)
			return
		}
		h.log.Error().Err(err).Msg("list users")
		page.Error = formError(err)
		render(h.log, h.views, w, http.StatusBadGateway, "users", page)
		return
	}

	page.Users = users
	render(h.log, h.views, w, http.StatusOK, "users", page)
}

// NewForm renders the create form for the requested admin type. The type
// also decides which capabilities may be granted.
func (h *UserHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFrom(r.Context())

	userType := r.URL.Query().Get("type")
	page, code, ok := h.formFor(userType, s.User)
	if !ok {
		http.Redirect(w, r, "/manage-users", http.StatusSeeOther)
		return
	}
	if !permissions.Has(&s.User, code) {
		render(h.log, h.views, w, http.StatusForbidden, "error", errorPage{
			Base:    views.Base{Title: "Forbidden", Nav: navFor(s, "users")},
			Heading: "Forbidden",
			Message: "You do not have permission to create this user type.",
		})
		return
	}

	render(h.log, h.views, w, http.StatusOK, "user_form", page)
}

// CreateSuperAdmin submits the full create payload for a super admin and,
// on success, returns to the re-fetched list.
func (h *UserHandler) CreateSuperAdmin(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "super")
}

// CreateSubAdmin submits the full create payload for a sub admin.
func (h *UserHandler) CreateSubAdmin(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "sub")
}

func (h *UserHandler) create(w http.ResponseWriter, r *http.Request, userType string) {
	s, _ := sessionFrom(r.Context())

	page, _, _ := h.formFor(userType, s.User)

	if err := r.ParseForm(); err != nil {
		page.Error = "Invalid form submission."
		render(h.log, h.views, w, http.StatusBadRequest, "user_form", page)
		return
	}

	input := platform.CreateUserInput{
		FullName: strings.TrimSpace(r.PostFormValue("fullName")),
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Features: grantableOnly(r.PostForm["features"], page.AvailableFeatures),
	}
	page.FullName = input.FullName
	page.Email = input.Email

	if input.FullName == "" || input.Email == "" || input.Password == "" {
		page.Error = "Full name, email, and password are required."
		render(h.log, h.views, w, http.StatusBadRequest, "user_form", page)
		return
	}
	if !validEmail(input.Email) {
		page.Error = "Invalid email format."
		render(h.log, h.views, w, http.StatusBadRequest, "user_form", page)
		return
	}

	var err error
	if userType == "super" {
		_, err = h.api.CreateSuperAdmin(r.Context(), s.Token, input)
	} else {
		_, err = h.api.CreateSubAdmin(r.Context(), s.Token, input)
	}
	if err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			h.guard.InvalidateSession(w, r)
			return
		}
		h.log.Warn().Err(err).Str("type", userType).Msg("create user failed")
		page.Error = formError(err)
		render(h.log, h.views, w, http.StatusBadRequest, "user_form", page)
		return
	}

	http.Redirect(w, r, "/manage-users", http.StatusSeeOther)
}

func (h *UserHandler) formFor(userType string, user types.User) (userFormPage, string, bool) {
	base := views.Base{Nav: &views.Nav{
		UserName:    user.FullName,
		UserEmail:   user.Email,
		Role:        user.Role,
		Active:      "users",
		ShowTenants: permissions.Has(&user, permissions.TenantManagement),
	}}

	switch userType {
	case "super":
		base.Title = "Create Super Admin"
		return userFormPage{
			Base:              base,
			Heading:           "Create Super Admin",
			Action:            "/manage-users/super-admin",
			AvailableFeatures: superAdminFeatures,
		}, permissions.CreateSuperAdmin, true
	case "sub":
		base.Title = "Create Sub Admin"
		return userFormPage{
			Base:              base,
			Heading:           "Create Sub Admin",
			Action:            "/manage-users/sub-admin",
			AvailableFeatures: subAdminFeatures,
		}, permissions.CreateSubAdmin, true
	default:
		return userFormPage{}, "", false
	}
}

// grantableOnly keeps submitted feature codes that the form actually
// offers for the chosen admin type.
func grantableOnly(submitted []string, available []Feature) []string {
	granted := make([]string, 0, len(submitted))
	for _, code := range submitted {
		for _, f := range available {
			if f.Code == code {
				granted = append(granted, code)
				break
			}
		}
	}
	return granted
}
