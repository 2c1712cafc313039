package driving

import (
	"context"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
)

// AsyncQueryService manages async query jobs and their event channels.
// Clients receive a channel token as a cookie, submit queries, and poll
// for job updates with their last seen event ID as the cursor.
type AsyncQueryService interface {
	// EnsureChannel validates the given channel token, minting a new
	// channel for the user when the token is absent or invalid. The
	// returned token is set as a cookie by the transport layer; reissued
	// is true when the caller must be handed a fresh token.
	EnsureChannel(ctx context.Context, token, userID string) (*ChannelGrant, error)

	// SubmitChartData accepts a chart data request for background
	// execution and publishes the pending job on the caller's channel.
	SubmitChartData(ctx context.Context, token string, req ChartDataRequest) (*domain.JobMetadata, error)

	// ReadEvents returns job updates on the token's channel strictly
	// after lastEventID, capped at the poll limit.
	ReadEvents(ctx context.Context, token, lastEventID string) ([]domain.JobEvent, error)

	// CompleteJob publishes a terminal job update. Called by workers.
	CompleteJob(ctx context.Context, job *domain.JobMetadata) error
}

// ChannelGrant is the result of channel establishment
type ChannelGrant struct {
	ChannelID string `json:"channel_id"`
	Token     string `json:"-"`
	Reissued  bool   `json:"-"`
}

// ChartDataRequest carries the form data for one async chart data query
type ChartDataRequest struct {
	DatabaseID string `json:"database_id"`
	FormData   string `json:"form_data"`
}
