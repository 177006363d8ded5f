package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/claritel/admin-console/internal/permissions"
	"github.com/claritel/admin-console/internal/platform"
	"github.com/claritel/admin-console/internal/session"
	"github.com/claritel/admin-console/internal/views"
	"github.com/claritel/admin-console/types"
)

const defaultDBPort = 5432

// TenantHandler serves the tenant screens: listing with in-memory search,
// detail view, provisioning, and partial updates.
type TenantHandler struct {
	api   *platform.Client
	views *views.Renderer
	log   zerolog.Logger
	guard *Guard
}

func NewTenantHandler(api *platform.Client, v *views.Renderer, log zerolog.Logger, guard *Guard) *TenantHandler {
	return &TenantHandler{api: api, views: v, log: log, guard: guard}
}

// TenantRouter registers the guarded tenant routes. The whole section sits
// behind tenant.management, matching the navigation gating.
func TenantRouter(r chi.Router, h *TenantHandler) {
	r.Route("/manage-tenants", func(r chi.Router) {
		r.Use(h.guard.RequireSession)
		r.Use(h.guard.RequirePermission(permissions.TenantManagement))

		r.Get("/", h.List)
		r.Get("/new", h.NewForm)
		r.Post("/", h.Create)
		r.Get("/{tenantID}", h.Details)
		r.Get("/{tenantID}/edit", h.EditForm)
		r.Post("/{tenantID}", h.Update)
	})
}

type tenantsPage struct {
	views.Base
	Tenants   []types.Tenant
	Query     string
	CanManage bool
}

type tenantFormPage struct {
	views.Base
	Heading   string
	Action    string
	IsEdit    bool
	Form      tenantForm
	Original  types.Tenant
	SubAdmins []types.User
}

type tenantDetailsPage struct {
	views.Base
	Tenant    types.Tenant
	CanManage bool
}

// tenantForm carries the posted (or seeded) form values back into the
// template so a failed submission keeps the user's input.
type tenantForm struct {
	Name                string
	Subdomain           string
	BillingEmail        string
	DBEngine            string
	DBHost              string
	DBPort              int
	DBName              string
	DBUsername          string
	DBPassword          string
	DBRegion            string
	SeatLimits          types.SeatLimits
	StartDate           string
	EndDate             string
	AssignedSubAdminIDs []string
}

// tenantOriginals are the values of the fetched record at the time the edit
// form was rendered. They ride along as hidden inputs so the update payload
// can be diffed against what the user actually saw.
type tenantOriginals struct {
	Name         string
	BillingEmail string
	DBHost       string
	DBPort       int
	DBName       string
	DBRegion     string
}

// List fetches every tenant, then filters the in-memory slice when a search
// query is present; the platform is never re-queried for a filter.
func (h *TenantHandler) List(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFrom(r.Context())
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	page := tenantsPage{
		Base:      views.Base{Title: "Manage Tenants", Nav: navFor(s, "tenants")},
		Query:     query,
		CanManage: permissions.Has(&s.User, permissions.TenantManagement),
	}

	tenants, err := h.api.ListTenants(r.Context(), s.Token)
	if err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			h.guard.InvalidateSession(w, r)
			return
		}
		h.log.Error().Err(err).Msg("list tenants")
		page.Error = formError(err)
		render(h.log, h.views, w, http.StatusBadGateway, "tenants", page)
		return
	}

	page.Tenants = filterTenants(tenants, query)
	render(h.log, h.views, w, http.StatusOK, "tenants", page)
}

// NewForm renders the provisioning form, with the assignable sub admins
// fetched for the checkbox list. A failed sub-admin fetch degrades to an
// empty list rather than blocking the form.
func (h *TenantHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFrom(r.Context())

	subAdmins, err := h.api.ListSubAdmins(r.Context(), s.Token)
	if err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			h.guard.InvalidateSession(w, r)
			return
		}
		h.log.Warn().Err(err).Msg("list sub admins")
	}

	render(h.log, h.views, w, http.StatusOK, "tenant_form", tenantFormPage{
		Base:      views.Base{Title: "Create Tenant", Nav: navFor(s, "tenants")},
		Heading:   "Create Tenant",
		Action:    "/manage-tenants",
		Form:      tenantForm{DBEngine: "postgres", DBPort: defaultDBPort},
		SubAdmins: subAdmins,
	})
}

// Create submits the full provisioning payload. On success the browser
// returns to the list, which re-fetches server truth.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFrom(r.Context())

	if err := r.ParseForm(); err != nil {
		h.renderCreateError(w, r, s.Token, tenantForm{}, "Invalid form submission.")
		return
	}

	form := parseTenantForm(r, defaultDBPort)
	if form.Name == "" || form.Subdomain == "" || form.BillingEmail == "" {
		h.renderCreateError(w, r, s.Token, form, "Name, subdomain, and billing email are required.")
		return
	}
	if !validEmail(form.BillingEmail) {
		h.renderCreateError(w, r, s.Token, form, "Invalid billing email format.")
		return
	}

	input := platform.CreateTenantInput{
		Name:                form.Name,
		Subdomain:           form.Subdomain,
		BillingEmail:        form.BillingEmail,
		DBEngine:            form.DBEngine,
		DBHost:              form.DBHost,
		DBPort:              form.DBPort,
		DBName:              form.DBName,
		DBUsername:          form.DBUsername,
		DBPassword:          form.DBPassword,
		DBRegion:            form.DBRegion,
		SeatLimits:          form.SeatLimits,
		StartDate:           form.StartDate,
		EndDate:             form.EndDate,
		AssignedSubAdminIDs: form.AssignedSubAdminIDs,
	}
	if input.AssignedSubAdminIDs == nil {
		input.AssignedSubAdminIDs = []string{}
	}

	if _, err := h.api.CreateTenant(r.Context(), s.Token, input); err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			h.guard.InvalidateSession(w, r)
			return
		}
		h.log.Warn().Err(err).Str("subdomain", form.Subdomain).Msg("create tenant failed")
		h.renderCreateError(w, r, s.Token, form, formError(err))
		return
	}

	http.Redirect(w, r, "/manage-tenants", http.StatusSeeOther)
}

// Details fetches and renders one tenant. The database password never
// appears: the API does not return it and the view has no slot for it.
func (h *TenantHandler) Details(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFrom(r.Context())

	tenant, err := h.api.GetTenant(r.Context(), s.Token, chi.URLParam(r, "tenantID"))
	if err != nil {
		h.tenantFetchError(w, r, s, err)
		return
	}

	render(h.log, h.views, w, http.StatusOK, "tenant_details", tenantDetailsPage{
		Base:      views.Base{Title: tenant.Name, Nav: navFor(s, "tenants")},
		Tenant:    tenant,
		CanManage: permissions.Has(&s.User, permissions.TenantManagement),
	})
}

// EditForm seeds the edit form from a fresh detail fetch. The subdomain is
// rendered read-only; it is immutable after creation.
func (h *TenantHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFrom(r.Context())

	tenant, err := h.api.GetTenant(r.Context(), s.Token, chi.URLParam(r, "tenantID"))
	if err != nil {
		h.tenantFetchError(w, r, s, err)
		return
	}

	render(h.log, h.views, w, http.StatusOK, "tenant_form", tenantFormPage{
		Base:     views.Base{Title: "Edit " + tenant.Name, Nav: navFor(s, "tenants")},
		Heading:  "Edit Tenant",
		Action:   "/manage-tenants/" + tenant.ID,
		IsEdit:   true,
		Form:     formFromTenant(tenant),
		Original: tenant,
	})
}

// Update sends only the fields that changed from the originally fetched
// record. seat_limits_json always ships; the subdomain never does.
func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, _ := sessionFrom(r.Context())
	tenantID := chi.URLParam(r, "tenantID")

	if err := r.ParseForm(); err != nil {
		h.renderEditError(w, r, s, tenantID, tenantForm{}, "Invalid form submission.")
		return
	}

	// A cleared or garbled port field falls back to the original, not the
	// create default, so it never ships as an unintended diff.
	orig := parseOriginals(r)
	form := parseTenantForm(r, orig.DBPort)
	if form.Name == "" || form.BillingEmail == "" {
		h.renderEditError(w, r, s, tenantID, form, "Name and billing email are required.")
		return
	}
	if !validEmail(form.BillingEmail) {
		h.renderEditError(w, r, s, tenantID, form, "Invalid billing email format.")
		return
	}

	payload := tenantUpdatePayload(form, orig)
	if _, err := h.api.UpdateTenant(r.Context(), s.Token, tenantID, payload); err != nil {
		if errors.Is(err, platform.ErrUnauthorized) {
			h.guard.InvalidateSession(w, r)
			return
		}
		h.log.Warn().Err(err).Str("tenant", tenantID).Msg("update tenant failed")
		h.renderEditError(w, r, s, tenantID, form, formError(err))
		return
	}

	http.Redirect(w, r, "/manage-tenants", http.StatusSeeOther)
}

// tenantUpdatePayload computes the minimal diff the API receives on edit:
// changed scalar fields only, the password only when a new one was typed,
// dates only when set, and the seat limits unconditionally.
func tenantUpdatePayload(form tenantForm, orig tenantOriginals) map[string]any {
	payload := map[string]any{
		"seat_limits_json": form.SeatLimits,
	}
	if form.Name != orig.Name {
		payload["name"] = form.Name
	}
	if form.BillingEmail != orig.BillingEmail {
		payload["billing_email"] = form.BillingEmail
	}
	if form.DBHost != orig.DBHost {
		payload["db_host"] = form.DBHost
	}
	if form.DBPort != orig.DBPort {
		payload["db_port"] = form.DBPort
	}
	if form.DBName != orig.DBName {
		payload["db_name"] = form.DBName
	}
	if form.DBRegion != orig.DBRegion {
		payload["db_region"] = form.DBRegion
	}
	if form.DBPassword != "" {
		payload["db_password"] = form.DBPassword
	}
	if form.StartDate != "" {
		payload["start_date"] = form.StartDate
	}
	if form.EndDate != "" {
		payload["end_date"] = form.EndDate
	}
	return payload
}

// filterTenants matches the query case-insensitively against name,
// subdomain, and billing email substrings.
func filterTenants(tenants []types.Tenant, query string) []types.Tenant {
	if query == "" {
		return tenants
	}
	q := strings.ToLower(query)
	filtered := make([]types.Tenant, 0, len(tenants))
	for _, t := range tenants {
		if strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Subdomain), q) ||
			strings.Contains(strings.ToLower(t.BillingEmail), q) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func parseTenantForm(r *http.Request, portFallback int) tenantForm {
	return tenantForm{
		Name:         strings.TrimSpace(r.PostFormValue("name")),
		Subdomain:    strings.TrimSpace(r.PostFormValue("subdomain")),
		BillingEmail: strings.TrimSpace(r.PostFormValue("billing_email")),
		DBEngine:     strings.TrimSpace(r.PostFormValue("db_engine")),
		DBHost:       strings.TrimSpace(r.PostFormValue("db_host")),
		DBPort:       formInt(r, "db_port", portFallback),
		DBName:       strings.TrimSpace(r.PostFormValue("db_name")),
		DBUsername:   strings.TrimSpace(r.PostFormValue("db_username")),
		DBPassword:   r.PostFormValue("db_password"),
		DBRegion:     strings.TrimSpace(r.PostFormValue("db_region")),
		SeatLimits: types.SeatLimits{
			Admin:      formInt(r, "admin_cnt", 0),
			Manager:    formInt(r, "manager_cnt", 0),
			Supervisor: formInt(r, "supervisor_cnt", 0),
			Quality:    formInt(r, "quality_cnt", 0),
			MIS:        formInt(r, "mis_cnt", 0),
			Agent:      formInt(r, "agent_cnt", 0),
		},
		StartDate:           strings.TrimSpace(r.PostFormValue("start_date")),
		EndDate:             strings.TrimSpace(r.PostFormValue("end_date")),
		AssignedSubAdminIDs: r.PostForm["assigned_subadmin_ids"],
	}
}

func parseOriginals(r *http.Request) tenantOriginals {
	return tenantOriginals{
		Name:         r.PostFormValue("orig_name"),
		BillingEmail: r.PostFormValue("orig_billing_email"),
		DBHost:       r.PostFormValue("orig_db_host"),
		DBPort:       formInt(r, "orig_db_port", 0),
		DBName:       r.PostFormValue("orig_db_name"),
		DBRegion:     r.PostFormValue("orig_db_region"),
	}
}

func formFromTenant(t types.Tenant) tenantForm {
	return tenantForm{
		Name:         t.Name,
		Subdomain:    t.Subdomain,
		BillingEmail: t.BillingEmail,
		DBEngine:     t.DBEngine,
		DBHost:       t.Host,
		DBPort:       t.Port,
		DBName:       t.DBName,
		DBUsername:   t.DBUsername,
		DBRegion:     t.Region,
		SeatLimits:   t.SeatLimits,
		StartDate:    t.StartDate,
		EndDate:      t.EndDate,
	}
}

func formInt(r *http.Request, field string, fallback int) int {
	raw := strings.TrimSpace(r.PostFormValue(field))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func (h *TenantHandler) renderCreateError(w http.ResponseWriter, r *http.Request, token string, form tenantForm, msg string) {
	s, _ := sessionFrom(r.Context())

	subAdmins, err := h.api.ListSubAdmins(r.Context(), token)
	if err != nil {
		h.log.Warn().Err(err).Msg("list sub admins")
	}

	render(h.log, h.views, w, http.StatusBadRequest, "tenant_form", tenantFormPage{
		Base:      views.Base{Title: "Create Tenant", Nav: navFor(s, "tenants"), Error: msg},
		Heading:   "Create Tenant",
		Action:    "/manage-tenants",
		Form:      form,
		SubAdmins: subAdmins,
	})
}

// renderEditError re-renders the edit form with the user's posted values
// intact. Only the immutable fields and the hidden originals come from a
// fresh fetch.
func (h *TenantHandler) renderEditError(w http.ResponseWriter, r *http.Request, s session.Session, tenantID string, form tenantForm, msg string) {
	tenant, err := h.api.GetTenant(r.Context(), s.Token, tenantID)
	if err != nil {
		h.tenantFetchError(w, r, s, err)
		return
	}

	form.Subdomain = tenant.Subdomain
	form.DBEngine = tenant.DBEngine
	form.DBUsername = tenant.DBUsername

	render(h.log, h.views, w, http.StatusBadRequest, "tenant_form", tenantFormPage{
		Base:     views.Base{Title: "Edit " + tenant.Name, Nav: navFor(s, "tenants"), Error: msg},
		Heading:  "Edit Tenant",
		Action:   "/manage-tenants/" + tenant.ID,
		IsEdit:   true,
		Form:     form,
		Original: tenant,
	})
}

func (h *TenantHandler) tenantFetchError(w http.ResponseWriter, r *http.Request, s session.Session, err error) {
	if errors.Is(err, platform.ErrUnauthorized) {
		h.guard.InvalidateSession(w, r)
		return
	}
	h.log.Error().Err(err).Msg("fetch tenant")
	render(h.log, h.views, w, http.StatusBadGateway, "error", errorPage{
		Base:    views.Base{Title: "Error", Nav: navFor(s, "tenants")},
		Heading: "Could not load tenant",
		Message: formError(err),
	})
}
