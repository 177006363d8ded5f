// Package platform is the typed client for the remote platform API: the
// authentication, user, and tenant services the console fronts. Success
// payloads arrive wrapped as {"data": ...}; failures as {"errorMessage":
// "..."} with a non-2xx status. Requests are never retried here; a failure
// surfaces to the screen that made it.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/claritel/admin-console/types"
)

// Client calls the platform API on behalf of console sessions.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client for the API at baseURL. The underlying
// transport is OpenTelemetry-instrumented; timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// LoginResult is the outcome of a credential check. Either MFARequired is
// true and TempToken carries the challenge credential, or User and
// AccessToken carry a full session.
type LoginResult struct {
	MFARequired bool       `json:"mfaRequired"`
	TempToken   string     `json:"tempToken"`
	User        types.User `json:"user"`
	AccessToken string     `json:"accessToken"`
}

// Credentials is a full session grant: the authenticated user and the
// bearer token for subsequent calls.
type Credentials struct {
	User        types.User `json:"user"`
	AccessToken string     `json:"accessToken"`
}

// Provisioning is the material for enrolling an authenticator app.
type Provisioning struct {
	QRCodeURL string `json:"qrCodeUrl"`
	Secret    string `json:"secret"`
}

// CreateUserInput is the payload for creating a super or sub admin.
type CreateUserInput struct {
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Features []string `json:"features"`
}

// CreateTenantInput is the full payload for provisioning a tenant. The
// database password is write-only and never appears in responses.
type CreateTenantInput struct {
	Name                string           `json:"name"`
	Subdomain           string           `json:"subdomain"`
	BillingEmail        string           `json:"billing_email"`
	DBEngine            string           `json:"db_engine"`
	DBHost              string           `json:"db_host"`
	DBPort              int              `json:"db_port"`
	DBName              string           `json:"db_name"`
	DBUsername          string           `json:"db_username"`
	DBPassword          string           `json:"db_password"`
	DBRegion            string           `json:"db_region"`
	SeatLimits          types.SeatLimits `json:"seat_limits_json"`
	StartDate           string           `json:"start_date,omitempty"`
	EndDate             string           `json:"end_date,omitempty"`
	AssignedSubAdminIDs []string         `json:"assigned_subadmin_ids"`
}

// Login submits email and password.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var result LoginResult
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", "", body, &result)
	return result, err
}

// VerifyMFA completes a pending login challenge. tempToken is the scoped
// credential from Login; this is the only call that may carry it.
func (c *Client) VerifyMFA(ctx context.Context, tempToken, code string) (Credentials, error) {
	var creds Credentials
	body := map[string]string{"token": code}
	err := c.do(ctx, http.MethodPost, "/api/auth/2fa/verify", tempToken, body, &creds)
	return creds, err
}

// GenerateMFA requests enrollment material for the current user.
func (c *Client) GenerateMFA(ctx context.Context, token string) (Provisioning, error) {
	var prov Provisioning
	err := c.do(ctx, http.MethodPost, "/api/auth/2fa/generate", token, nil, &prov)
	return prov, err
}

// VerifyMFASetup confirms enrollment with a code from the authenticator app.
func (c *Client) VerifyMFASetup(ctx context.Context, token, code string) error {
	body := map[string]string{"token": code}
	return c.do(ctx, http.MethodPost, "/api/auth/2fa/verify-setup", token, body, nil)
}

// ListUsers fetches all admin users.
func (c *Client) ListUsers(ctx context.Context, token string) ([]types.User, error) {
	var users []types.User
	err := c.do(ctx, http.MethodGet, "/api/users", token, nil, &users)
	return users, err
}

// ListSubAdmins fetches sub-admin users eligible for tenant assignment.
func (c *Client) ListSubAdmins(ctx context.Context, token string) ([]types.User, error) {
	var users []types.User
	err := c.do(ctx, http.MethodGet, "/api/users/sub-admins", token, nil, &users)
	return users, err
}

// CreateSuperAdmin creates a super admin account.
func (c *Client) CreateSuperAdmin(ctx context.Context, token string, input CreateUserInput) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodPost, "/api/users/super-admin", token, input, &user)
	return user, err
}

// CreateSubAdmin creates a sub admin account.
func (c *Client) CreateSubAdmin(ctx context.Context, token string, input CreateUserInput) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodPost, "/api/users/sub-admin", token, input, &user)
	return user, err
}

// ListTenants fetches all tenants.
func (c *Client) ListTenants(ctx context.Context, token string) ([]types.Tenant, error) {
	var tenants []types.Tenant
	err := c.do(ctx, http.MethodGet, "/api/tenants", token, nil, &tenants)
	return tenants, err
}

// GetTenant fetches one tenant with its full detail record.
func (c *Client) GetTenant(ctx context.Context, token, id string) (types.Tenant, error) {
	var tenant types.Tenant
	err := c.do(ctx, http.MethodGet, "/api/tenants/"+id, token, nil, &tenant)
	return tenant, err
}

// CreateTenant provisions a tenant with the full payload.
func (c *Client) CreateTenant(ctx context.Context, token string, input CreateTenantInput) (types.Tenant, error) {
	var tenant types.Tenant
	err := c.do(ctx, http.MethodPost, "/api/tenants", token, input, &tenant)
	return tenant, err
}

// UpdateTenant applies a partial update. payload holds only the changed
// fields; the caller computes the diff against the originally fetched
// record.
func (c *Client) UpdateTenant(ctx context.Context, token, id string, payload map[string]any) (types.Tenant, error) {
	var tenant types.Tenant
	err := c.do(ctx, http.MethodPut, "/api/tenants/"+id, token, payload, &tenant)
	return tenant, err
}

type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	ErrorMessage string `json:"errorMessage"`
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("platform api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope errorEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil {
			apiErr.Message = envelope.ErrorMessage
		}
		return apiErr
	}

	if out == nil {
		return nil
	}

	var envelope dataEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Data) == 0 {
		// A 2xx with no data payload leaves out at its zero value.
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
