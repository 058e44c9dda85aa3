package service

import (
	"context"
	"time"

	"github.com/ignatij/letterflow/pkg/models"
	"github.com/ignatij/letterflow/pkg/storage"
	"github.com/pkg/errors"
)

// Logger defines the logging interface for the service layer.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// TaskService owns the task store, the result store and the background
// dispatcher. It is the single entry point for the interactive layer and
// the poll loop; task records are only ever mutated here, never by
// background runs, which communicate exclusively through the result store.
type TaskService struct {
	store      storage.Store
	results    *ResultStore
	dispatcher *Dispatcher
	logger     Logger
	now        func() time.Time
}

func NewTaskService(ctx context.Context, store storage.Store, runner PipelineRunner, logger Logger) *TaskService {
	results := NewResultStore()
	return &TaskService{
		store:      store,
		results:    results,
		dispatcher: NewDispatcher(ctx, runner, results, logger),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Results exposes the result store for the poll loop.
func (s *TaskService) Results() *ResultStore {
	return s.results
}

// Dispatcher exposes the background dispatcher, mainly for shutdown.
func (s *TaskService) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// CreateTask builds a task, schedules its first due time and saves it.
func (s *TaskService) CreateTask(name, instructions string, interval int, model string, sources models.SourceSet, template *models.Upload, contextDocs []models.Upload) (models.Task, error) {
	task, err := models.NewTask(name, instructions, interval, model, sources, template, contextDocs)
	if err != nil {
		return models.Task{}, err
	}
	models.ScheduleNext(&task, s.now())
	if err := s.store.SaveTask(task); err != nil {
		return models.Task{}, errors.Wrap(err, "failed to save task")
	}
	s.logger.Infof("Created task '%s' with ID %s, next run %s", task.Name, task.ID, models.FormatTime(task.NextRun))
	return task, nil
}

func (s *TaskService) GetTask(id string) (models.Task, error) {
	return s.store.GetTask(id)
}

func (s *TaskService) ListTasks() ([]models.Task, error) {
	return s.store.ListTasks()
}

// TaskUpdate carries optional field edits; nil fields are left unchanged.
type TaskUpdate struct {
	Name         *string
	Instructions *string
	Interval     *int
	Model        *string
	Sources      *models.SourceSet
	Template     *models.Upload
	ContextDocs  []models.Upload
}

// UpdateTask applies an edit to a task. An interval change on an active
// task reschedules the next due time from now.
func (s *TaskService) UpdateTask(id string, update TaskUpdate) (models.Task, error) {
	task, err := s.store.GetTask(id)
	if err != nil {
		return models.Task{}, err
	}
	if update.Name != nil {
		if *update.Name == "" {
			return models.Task{}, errors.New("task name cannot be empty")
		}
		task.Name = *update.Name
	}
	if update.Instructions != nil {
		task.Instructions = *update.Instructions
	}
	if update.Model != nil {
		task.Model = *update.Model
	}
	if update.Sources != nil {
		task.Sources = *update.Sources
	}
	if update.Template != nil {
		task.Template = update.Template
	}
	if update.ContextDocs != nil {
		task.ContextDocs = update.ContextDocs
	}
	if update.Interval != nil {
		interval := *update.Interval
		if interval < models.MinInterval {
			interval = models.MinInterval
		}
		task.Interval = interval
		if task.Active {
			models.ScheduleNext(&task, s.now())
		}
	}
	task.UpdatedAt = s.now()
	if err := s.store.SaveTask(task); err != nil {
		return models.Task{}, errors.Wrap(err, "failed to save task")
	}
	s.logger.Infof("Updated task '%s' (%s)", task.Name, task.ID)
	return task, nil
}

// DeleteTask removes a task along with its output history and any pending
// result store entry, so no orphaned run state remains.
func (s *TaskService) DeleteTask(id string) error {
	if err := s.store.DeleteTask(id); err != nil {
		return err
	}
	s.results.Clear(id)
	s.logger.Infof("Deleted task %s", id)
	return nil
}

// PauseTask disables automatic firing. The status is untouched and a run
// already in flight proceeds to completion; only next_run is cleared.
func (s *TaskService) PauseTask(id string) (models.Task, error) {
	task, err := s.store.GetTask(id)
	if err != nil {
		return models.Task{}, err
	}
	task.Active = false
	task.NextRun = nil
	task.UpdatedAt = s.now()
	if err := s.store.SaveTask(task); err != nil {
		return models.Task{}, errors.Wrap(err, "failed to save task")
	}
	s.logger.Infof("Paused task '%s' (%s)", task.Name, task.ID)
	return task, nil
}

// ResumeTask re-enables automatic firing and reschedules from now.
func (s *TaskService) ResumeTask(id string) (models.Task, error) {
	task, err := s.store.GetTask(id)
	if err != nil {
		return models.Task{}, err
	}
	task.Active = true
	models.ScheduleNext(&task, s.now())
	task.UpdatedAt = s.now()
	if err := s.store.SaveTask(task); err != nil {
		return models.Task{}, errors.Wrap(err, "failed to save task")
	}
	s.logger.Infof("Resumed task '%s' (%s), next run %s", task.Name, task.ID, models.FormatTime(task.NextRun))
	return task, nil
}

// TriggerTask dispatches a run immediately. At most one run per task may
// be in flight, so triggering a running task is rejected.
func (s *TaskService) TriggerTask(id string) (models.Task, error) {
	task, err := s.store.GetTask(id)
	if err != nil {
		return models.Task{}, err
	}
	if task.Status == models.RunningTaskStatus {
		return models.Task{}, errors.Errorf("task '%s' already has a run in flight", task.Name)
	}
	s.dispatcher.Submit(task)
	task.Status = models.RunningTaskStatus
	task.UpdatedAt = s.now()
	if err := s.store.SaveTask(task); err != nil {
		return models.Task{}, errors.Wrap(err, "failed to save task")
	}
	return task, nil
}

// Reconcile folds a finished run result into the task record: done runs
// record an output and last_run, failed runs record last_error. The task
// is re-read from the store first so edits made while the run was in
// flight survive. Active tasks are rescheduled from now, so a failing
// task keeps retrying on its schedule; a task paused mid-run stays
// unscheduled. The result entry is cleared either way.
func (s *TaskService) Reconcile(task models.Task, result models.RunResult, now time.Time) (models.Task, error) {
	task, err := s.store.GetTask(task.ID)
	if err != nil {
		return models.Task{}, err
	}
	switch result.Status {
	case models.DoneRunStatus:
		task.Status = models.DoneTaskStatus
		task.LastRun = &now
		task.LastError = ""
		task.AppendOutput(models.Output{
			Timestamp:   result.Timestamp,
			Text:        result.Text,
			Document:    result.Document,
			Model:       task.Model,
			SourcesUsed: result.SourcesUsed,
		})
	case models.ErrorRunStatus:
		task.Status = models.ErrorTaskStatus
		task.LastError = result.Err
		if task.LastError == "" {
			task.LastError = "unknown error"
		}
		// A rendering failure still carries the generated text; keep it
		// as an output with no document bytes.
		if result.Text != "" {
			task.LastRun = &now
			task.AppendOutput(models.Output{
				Timestamp:   result.Timestamp,
				Text:        result.Text,
				Model:       task.Model,
				SourcesUsed: result.SourcesUsed,
			})
		}
	default:
		return task, errors.Errorf("cannot reconcile run with status %s", result.Status)
	}
	if task.Active {
		models.ScheduleNext(&task, now)
	} else {
		task.NextRun = nil
	}
	task.UpdatedAt = now
	if err := s.store.SaveTask(task); err != nil {
		return models.Task{}, errors.Wrap(err, "failed to save task")
	}
	s.results.Clear(task.ID)
	s.logger.Infof("Reconciled run for task '%s': %s, next run %s", task.Name, task.Status, models.FormatTime(task.NextRun))
	return task, nil
}
