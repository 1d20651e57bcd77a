package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/deploywatch/deploywatch/internal/domain/deployment"
)

// HealthTransition is the wire payload emitted whenever a deployment's
// classified health status changes. Downstream consumers (alerting,
// dashboards) subscribe to these; this service only produces them.
type HealthTransition struct {
	DeploymentID int64                   `json:"deployment_id"`
	From         deployment.HealthStatus `json:"from"`
	To           deployment.HealthStatus `json:"to"`
	At           time.Time               `json:"at"`
}

type HealthEventsKafka struct {
	p *Producer
}

func NewHealthEventsKafka(p *Producer) *HealthEventsKafka { return &HealthEventsKafka{p: p} }

func (e *HealthEventsKafka) PublishHealthChanged(ctx context.Context, deploymentID int64, from, to deployment.HealthStatus, at time.Time) error {
	b, err := json.Marshal(HealthTransition{
		DeploymentID: deploymentID,
		From:         from,
		To:           to,
		At:           at,
	})
	if err != nil {
		return err
	}
	return e.p.Publish(ctx, KeyFromInt64(deploymentID), b)
}
