package driven

import (
	"context"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
)

// EventStream publishes and reads async query job events (Redis Streams).
// Each channel has its own capped stream; every event is mirrored onto a
// global firehose stream for operational consumers.
type EventStream interface {
	// Publish appends a job update to the channel's stream and the firehose
	Publish(ctx context.Context, job *domain.JobMetadata) error

	// Read returns events on a channel strictly after lastEventID, capped
	// at limit entries. An empty lastEventID reads from the beginning.
	Read(ctx context.Context, channelID, lastEventID string, limit int) ([]domain.JobEvent, error)

	// Ping checks if the stream backend is healthy
	Ping(ctx context.Context) error
}
