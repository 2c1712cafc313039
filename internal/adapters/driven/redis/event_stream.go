package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EventStream = (*EventStream)(nil)

const (
	eventStreamPrefix = "quarry:async:events:"

	// defaultChannelLimit caps each per-channel stream (approximate trim)
	defaultChannelLimit = 1000

	// defaultFirehoseLimit caps the global firehose stream
	defaultFirehoseLimit = 1000000
)

// EventStream implements driven.EventStream on Redis Streams.
// Every job update is XADDed to the owning channel's stream and
// mirrored onto a firehose stream shared by all channels. Both streams
// are capped with approximate MAXLEN trimming.
type EventStream struct {
	client        *redis.Client
	channelLimit  int64
	firehoseLimit int64
}

// NewEventStream creates a Redis-backed event stream with default caps.
func NewEventStream(client *redis.Client) *EventStream {
	return &EventStream{
		client:        client,
		channelLimit:  defaultChannelLimit,
		firehoseLimit: defaultFirehoseLimit,
	}
}

// channelKey returns the stream key for one channel.
func channelKey(channelID string) string {
	return eventStreamPrefix + channelID
}

// firehoseKey is the stream all channel events are mirrored onto.
func firehoseKey() string {
	return eventStreamPrefix + "full"
}

// Publish appends a job update to the channel's stream and the firehose.
func (s *EventStream) Publish(ctx context.Context, job *domain.JobMetadata) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job metadata: %w", err)
	}

	values := map[string]any{"data": string(data)}

	pipe := s.client.Pipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: channelKey(job.ChannelID),
		MaxLen: s.channelLimit,
		Approx: true,
		Values: values,
	})
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: firehoseKey(),
		MaxLen: s.firehoseLimit,
		Approx: true,
		Values: values,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish job event: %w", err)
	}
	return nil
}

// Read returns events on a channel strictly after lastEventID, capped
// at limit entries. An empty lastEventID reads from the beginning.
func (s *EventStream) Read(ctx context.Context, channelID, lastEventID string, limit int) ([]domain.JobEvent, error) {
	start := "-"
	if lastEventID != "" {
		start = domain.IncrementEventID(lastEventID)
	}
	if limit <= 0 {
		limit = domain.MaxEventCount
	}

	entries, err := s.client.XRangeN(ctx, channelKey(channelID), start, "+", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("read channel stream: %w", err)
	}

	var events []domain.JobEvent
	for _, entry := range entries {
		raw, ok := entry.Values["data"].(string)
		if !ok {
			continue
		}

		var job domain.JobMetadata
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			// Skip entries written in an unknown format
			continue
		}

		events = append(events, domain.JobEvent{ID: entry.ID, Data: job})
	}

	return events, nil
}

// Ping checks if the stream backend is healthy.
func (s *EventStream) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
