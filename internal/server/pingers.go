package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// pingable is satisfied by stores that expose a connection check, such as
// *sensor.SQLiteStore.
type pingable interface {
	Ping(ctx context.Context) error
}

// StorePinger probes a local store's database connection. It satisfies the
// Pinger interface and is used by GET /api/ready.
type StorePinger struct {
	// store is the pingable store to probe.
	store pingable
	// name identifies the store in readiness responses (e.g. "sensor-db").
	name string
}

// NewStorePinger constructs a StorePinger for the given store and label.
func NewStorePinger(store pingable, name string) *StorePinger {
	return &StorePinger{store: store, name: name}
}

// Name returns the store label used in readiness responses.
func (p *StorePinger) Name() string { return p.name }

// Ping checks the store's database connection.
func (p *StorePinger) Ping(ctx context.Context) error {
	if err := p.store.Ping(ctx); err != nil {
		return fmt.Errorf("store ping failed: %w", err)
	}
	return nil
}

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready when the
// qdrant vector backend is selected.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
