package services

import (
	"context"
	"log/slog"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driving"
)

// Ensure asyncQueryService implements AsyncQueryService
var _ driving.AsyncQueryService = (*asyncQueryService)(nil)

// asyncQueryService implements the AsyncQueryService interface.
// Each browser session is bound to one event channel through a signed
// channel token; job updates flow through the channel's event stream
// and are consumed by polling with the last seen event ID as cursor.
type asyncQueryService struct {
	authAdapter   driven.AuthAdapter
	databaseStore driven.DatabaseStore
	eventStream   driven.EventStream
	taskQueue     driven.TaskQueue
	logger        *slog.Logger
}

// NewAsyncQueryService creates a new AsyncQueryService.
func NewAsyncQueryService(
	authAdapter driven.AuthAdapter,
	databaseStore driven.DatabaseStore,
	eventStream driven.EventStream,
	taskQueue driven.TaskQueue,
	logger *slog.Logger,
) driving.AsyncQueryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &asyncQueryService{
		authAdapter:   authAdapter,
		databaseStore: databaseStore,
		eventStream:   eventStream,
		taskQueue:     taskQueue,
		logger:        logger,
	}
}

// EnsureChannel validates the given channel token, minting a new channel
// when the token is absent, malformed, or minted for another user.
func (s *asyncQueryService) EnsureChannel(ctx context.Context, token, userID string) (*driving.ChannelGrant, error) {
	if token != "" {
		channelID, tokenUser, err := s.authAdapter.ParseChannelToken(token)
		if err == nil && tokenUser == userID {
			return &driving.ChannelGrant{
				ChannelID: channelID,
				Token:     token,
				Reissued:  false,
			}, nil
		}
	}

	channelID := generateID()
	newToken, err := s.authAdapter.GenerateChannelToken(channelID, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("issued async event channel", "channel_id", channelID, "user_id", userID)

	return &driving.ChannelGrant{
		ChannelID: channelID,
		Token:     newToken,
		Reissued:  true,
	}, nil
}

// SubmitChartData accepts a chart data request for background execution.
// The pending job is published on the caller's channel before the task
// is enqueued, so pollers see it immediately.
func (s *asyncQueryService) SubmitChartData(ctx context.Context, token string, req driving.ChartDataRequest) (*domain.JobMetadata, error) {
	channelID, userID, err := s.authAdapter.ParseChannelToken(token)
	if err != nil {
		return nil, domain.ErrChannelTokenInvalid
	}

	if req.DatabaseID == "" || req.FormData == "" {
		return nil, domain.ErrInvalidInput
	}
	if _, err := s.databaseStore.Get(ctx, req.DatabaseID); err != nil {
		return nil, err
	}

	job := domain.NewJobMetadata(channelID, userID)

	if err := s.eventStream.Publish(ctx, job); err != nil {
		return nil, err
	}

	task := domain.NewChartDataTask(job, req.FormData)
	task.Payload["database_id"] = req.DatabaseID
	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		// The pending event is already out; publish the failure so the
		// client is not left polling forever.
		job.Status = domain.JobStatusError
		job.Errors = append(job.Errors, "failed to queue job")
		_ = s.eventStream.Publish(ctx, job)
		return nil, err
	}

	s.logger.Info("submitted async chart data job",
		"job_id", job.JobID,
		"channel_id", channelID,
		"database_id", req.DatabaseID,
	)

	return job, nil
}

// ReadEvents returns job updates on the token's channel strictly after
// lastEventID, capped at the poll limit.
func (s *asyncQueryService) ReadEvents(ctx context.Context, token, lastEventID string) ([]domain.JobEvent, error) {
	channelID, _, err := s.authAdapter.ParseChannelToken(token)
	if err != nil {
		return nil, domain.ErrChannelTokenInvalid
	}

	return s.eventStream.Read(ctx, channelID, lastEventID, domain.MaxEventCount)
}

// CompleteJob publishes a terminal job update. Called by workers.
func (s *asyncQueryService) CompleteJob(ctx context.Context, job *domain.JobMetadata) error {
	return s.eventStream.Publish(ctx, job)
}
