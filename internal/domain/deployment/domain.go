package deployment

import "time"

// HealthStatus is the classified outcome of the most recent probe.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

const (
	DefaultPlatform    = "render"
	DefaultBranch      = "main"
	DefaultEnvironment = "production"

	StatusDeployed = "deployed"
)

type Deployment struct {
	ID                int64          `json:"id"`
	Name              string         `json:"name"`
	DisplayName       string         `json:"display_name"`
	URL               string         `json:"url"`
	HealthCheckURL    string         `json:"health_check_url,omitempty"`
	Platform          string         `json:"platform"`
	RepositoryURL     string         `json:"repository_url,omitempty"`
	Branch            string         `json:"branch"`
	Environment       string         `json:"environment"`
	Notes             string         `json:"notes,omitempty"`
	Status            string         `json:"status"`
	HealthStatus      HealthStatus   `json:"health_status"`
	LastHealthCheckAt *time.Time     `json:"last_health_check_at"`
	Metadata          map[string]any `json:"metadata"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// CheckURL resolves the URL used for liveness probes: the explicit
// health-check override when set, the deployment URL otherwise.
func (d *Deployment) CheckURL() string {
	if d.HealthCheckURL != "" {
		return d.HealthCheckURL
	}
	return d.URL
}
