package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/quarry-bi/quarry-core/internal/core/domain"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driven/mocks"
	"github.com/quarry-bi/quarry-core/internal/core/ports/driving"
)

type fakeAsyncService struct {
	published  []*domain.JobMetadata
	publishErr error
}

func (f *fakeAsyncService) EnsureChannel(ctx context.Context, token, userID string) (*driving.ChannelGrant, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAsyncService) SubmitChartData(ctx context.Context, token string, req driving.ChartDataRequest) (*domain.JobMetadata, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAsyncService) ReadEvents(ctx context.Context, token, lastEventID string) ([]domain.JobEvent, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAsyncService) CompleteJob(ctx context.Context, job *domain.JobMetadata) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	snapshot := *job
	f.published = append(f.published, &snapshot)
	return nil
}

type fakeReportService struct {
	schedules map[string]*domain.ReportSchedule
	completed []string
	lastErr   error
}

func newFakeReportService() *fakeReportService {
	return &fakeReportService{schedules: make(map[string]*domain.ReportSchedule)}
}

func (f *fakeReportService) Create(ctx context.Context, req driving.CreateReportRequest) (*domain.ReportSchedule, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeReportService) Get(ctx context.Context, id string) (*domain.ReportSchedule, error) {
	if s, ok := f.schedules[id]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeReportService) List(ctx context.Context) ([]*domain.ReportSchedule, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeReportService) Update(ctx context.Context, id string, req driving.UpdateReportRequest) (*domain.ReportSchedule, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeReportService) Delete(ctx context.Context, id string) error {
	return errors.New("not implemented")
}

func (f *fakeReportService) ListExecutions(ctx context.Context, id string, limit int) ([]*domain.ReportExecutionLog, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeReportService) DispatchDue(ctx context.Context) (int, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeReportService) CompleteExecution(ctx context.Context, scheduleID string, execErr error) error {
	f.completed = append(f.completed, scheduleID)
	f.lastErr = execErr
	return nil
}

func newTestWorker(queue *mocks.MockTaskQueue, async *fakeAsyncService, reports *fakeReportService) *Worker {
	return NewWorker(WorkerConfig{
		TaskQueue:     queue,
		AsyncService:  async,
		ReportService: reports,
		Logger:        slog.Default(),
	})
}

func TestWorker_ChartDataTask_Success(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	async := &fakeAsyncService{}
	reports := newFakeReportService()
	w := newTestWorker(queue, async, reports)

	ctx := context.Background()
	job := domain.NewJobMetadata("chan-1", "user-1")
	task := domain.NewChartDataTask(job, `{"metric":"count"}`)
	_ = queue.Enqueue(ctx, task)

	dequeued, _ := queue.Dequeue(ctx)
	w.processTask(ctx, dequeued, slog.Default())

	// Running event then done event
	if len(async.published) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(async.published))
	}
	if async.published[0].Status != domain.JobStatusRunning {
		t.Errorf("expected running first, got %s", async.published[0].Status)
	}
	if async.published[1].Status != domain.JobStatusDone {
		t.Errorf("expected done second, got %s", async.published[1].Status)
	}
	if async.published[1].ResultURL == "" {
		t.Error("expected result URL on done event")
	}
	if async.published[1].JobID != job.JobID {
		t.Errorf("expected job %s, got %s", job.JobID, async.published[1].JobID)
	}

	updated, _ := queue.GetTask(ctx, task.ID)
	if updated.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed task, got %s", updated.Status)
	}
}

func TestWorker_ChartDataTask_InvalidFormData(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	async := &fakeAsyncService{}
	reports := newFakeReportService()
	w := newTestWorker(queue, async, reports)

	ctx := context.Background()
	job := domain.NewJobMetadata("chan-1", "user-1")
	task := domain.NewChartDataTask(job, "{not json")
	_ = queue.Enqueue(ctx, task)

	dequeued, _ := queue.Dequeue(ctx)
	w.processTask(ctx, dequeued, slog.Default())

	// Running event then error event
	if len(async.published) != 2 {
		t.Fatalf("expected 2 published events, got %d", len(async.published))
	}
	if async.published[1].Status != domain.JobStatusError {
		t.Errorf("expected error event, got %s", async.published[1].Status)
	}
	if len(async.published[1].Errors) == 0 {
		t.Error("expected error message on error event")
	}

	// Failed execution is nacked for retry
	updated, _ := queue.GetTask(ctx, task.ID)
	if updated.Status != domain.TaskStatusPending {
		t.Errorf("expected pending task for retry, got %s", updated.Status)
	}
}

func TestWorker_ChartDataTask_MissingPayload(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	async := &fakeAsyncService{}
	reports := newFakeReportService()
	w := newTestWorker(queue, async, reports)

	ctx := context.Background()
	task := domain.NewTask(domain.TaskTypeChartData, map[string]string{})
	_ = queue.Enqueue(ctx, task)

	dequeued, _ := queue.Dequeue(ctx)
	w.processTask(ctx, dequeued, slog.Default())

	if len(async.published) != 0 {
		t.Errorf("expected no events for malformed task, got %d", len(async.published))
	}
}

func TestWorker_ExecuteReportTask_Success(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	async := &fakeAsyncService{}
	reports := newFakeReportService()
	reports.schedules["sched-1"] = &domain.ReportSchedule{ID: "sched-1", Name: "daily"}
	w := newTestWorker(queue, async, reports)

	ctx := context.Background()
	task := domain.NewExecuteReportTask("sched-1")
	_ = queue.Enqueue(ctx, task)

	dequeued, _ := queue.Dequeue(ctx)
	w.processTask(ctx, dequeued, slog.Default())

	if len(reports.completed) != 1 || reports.completed[0] != "sched-1" {
		t.Fatalf("expected completion for sched-1, got %v", reports.completed)
	}
	if reports.lastErr != nil {
		t.Errorf("expected successful execution, got %v", reports.lastErr)
	}

	updated, _ := queue.GetTask(ctx, task.ID)
	if updated.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed task, got %s", updated.Status)
	}
}

func TestWorker_ExecuteReportTask_MissingSchedule(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	async := &fakeAsyncService{}
	reports := newFakeReportService()
	w := newTestWorker(queue, async, reports)

	ctx := context.Background()
	task := domain.NewExecuteReportTask("no-such-schedule")
	_ = queue.Enqueue(ctx, task)

	dequeued, _ := queue.Dequeue(ctx)
	w.processTask(ctx, dequeued, slog.Default())

	// The failed run is recorded, not retried
	if len(reports.completed) != 1 {
		t.Fatalf("expected 1 recorded execution, got %d", len(reports.completed))
	}
	if reports.lastErr == nil {
		t.Error("expected execution error to be recorded")
	}

	updated, _ := queue.GetTask(ctx, task.ID)
	if updated.Status != domain.TaskStatusCompleted {
		t.Errorf("expected acked task, got %s", updated.Status)
	}
}

func TestWorker_UnknownTaskType(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	async := &fakeAsyncService{}
	reports := newFakeReportService()
	w := newTestWorker(queue, async, reports)

	ctx := context.Background()
	task := domain.NewTask(domain.TaskType("mystery"), nil)
	_ = queue.Enqueue(ctx, task)

	dequeued, _ := queue.Dequeue(ctx)
	w.processTask(ctx, dequeued, slog.Default())

	updated, _ := queue.GetTask(ctx, task.ID)
	if updated.Status != domain.TaskStatusPending && updated.Status != domain.TaskStatusFailed {
		t.Errorf("expected nacked task, got %s", updated.Status)
	}
}

func TestWorker_StartStop(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	async := &fakeAsyncService{}
	reports := newFakeReportService()
	w := newTestWorker(queue, async, reports)

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("unexpected error starting: %v", err)
	}

	health := w.Health(ctx)
	if !health.Running {
		t.Error("expected running worker")
	}
	if !health.QueueHealth {
		t.Error("expected healthy queue")
	}

	w.Stop()

	health = w.Health(ctx)
	if health.Running {
		t.Error("expected stopped worker")
	}
}
