package health

import "context"

// DBPinger checks index storage availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexCounter reports the number of stored index entries.
type IndexCounter interface {
	Count(ctx context.Context) (int, error)
}

// EventsChecker checks the event bus connection.
type EventsChecker interface {
	HealthCheck(ctx context.Context) error
}
