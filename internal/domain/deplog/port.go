package deplog

import "context"

type Repo interface {
	Insert(ctx context.Context, l *Log) error
	// ListByDeployment returns the newest entries first.
	ListByDeployment(ctx context.Context, deploymentID int64, limit int) ([]*Log, error)
}
