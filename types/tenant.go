package types

// Tenant subscription statuses as returned by the platform API.
const (
	SubscriptionActive  = "active"
	SubscriptionTrial   = "trial"
	SubscriptionExpired = "expired"
)

// Tenant represents a client organization as the platform API returns it.
// The database password is write-only: it is accepted on create and update
// but never read back, so it has no field here.
type Tenant struct {
	// ID is the unique identifier of the tenant.
	ID string `json:"id"`

	// Name is the tenant's display name.
	Name string `json:"name"`

	// Subdomain is the tenant's subdomain slug. It is immutable after
	// creation.
	Subdomain string `json:"subdomain"`

	// BillingEmail receives invoices and billing notices.
	BillingEmail string `json:"billing_email"`

	// Status is the tenant's provisioning status.
	Status string `json:"status"`

	// SubscriptionStatus is one of the Subscription* constants.
	SubscriptionStatus string `json:"subscription_status"`

	// DBEngine, Host, Port, DBName and DBUsername describe the tenant's
	// dedicated database connection.
	DBEngine   string `json:"db_engine"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	DBName     string `json:"db_name"`
	DBUsername string `json:"db_username"`

	// Region is the deployment region of the tenant's database.
	Region string `json:"region"`

	// SeatLimits caps the number of seats per role category.
	SeatLimits SeatLimits `json:"seat_limits_json"`

	// StartDate and EndDate bound the subscription period,
	// formatted as YYYY-MM-DD.
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// SeatLimits maps each tenant role category to its seat quota.
type SeatLimits struct {
	Admin      int `json:"admin_cnt"`
	Manager    int `json:"manager_cnt"`
	Supervisor int `json:"supervisor_cnt"`
	Quality    int `json:"quality_cnt"`
	MIS        int `json:"mis_cnt"`
	Agent      int `json:"agent_cnt"`
}

// Total returns the combined seat quota across all role categories.
func (s SeatLimits) Total() int {
	return s.Admin + s.Manager + s.Supervisor + s.Quality + s.MIS + s.Agent
}
