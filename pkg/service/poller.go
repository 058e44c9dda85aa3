package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ignatij/letterflow/pkg/models"
)

// DefaultPollInterval is the fixed period of the scheduling loop. A task's
// effective fire time can lag its due time by up to one period.
const DefaultPollInterval = 15 * time.Second

// Poller drives all automatic scheduling decisions on a fixed period:
// it reconciles finished background results into task records, fires
// tasks whose due time has passed and keeps a one-line status caption.
type Poller struct {
	svc      *TaskService
	interval time.Duration
	logger   Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	caption string
}

func NewPoller(svc *TaskService, interval time.Duration, logger Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		svc:      svc,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the poll loop in a goroutine, ticking immediately.
func (p *Poller) Start() {
	p.wg.Add(1)
	go p.run()
	p.logger.Infof("Scheduler poll loop started, interval %s", p.interval)
}

// Stop terminates the poll loop and waits for the current tick to finish.
// Runs already in flight are not affected.
func (p *Poller) Stop() {
	close(p.stopCh)
	p.wg.Wait()
	p.logger.Infof("Scheduler poll loop stopped")
}

func (p *Poller) run() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Tick(time.Now().UTC())
	for {
		select {
		case <-ticker.C:
			p.Tick(time.Now().UTC())
		case <-p.stopCh:
			return
		}
	}
}

// Tick performs one reconcile-and-fire pass. Exported so tests and the
// interactive layer can drive the scheduler with a controlled clock.
func (p *Poller) Tick(now time.Time) {
	tasks, err := p.svc.ListTasks()
	if err != nil {
		p.logger.Errorf("Poll tick failed to list tasks: %v", err)
		return
	}

	for i, task := range tasks {
		switch {
		case task.Status == models.RunningTaskStatus:
			result, ok := p.svc.Results().Poll(task.ID)
			if !ok || result.Status == models.RunningRunStatus {
				continue
			}
			updated, err := p.svc.Reconcile(task, result, now)
			if err != nil {
				p.logger.Errorf("Failed to reconcile task '%s': %v", task.Name, err)
				continue
			}
			tasks[i] = updated
		case task.Due(now):
			updated, err := p.svc.TriggerTask(task.ID)
			if err != nil {
				p.logger.Errorf("Failed to fire task '%s': %v", task.Name, err)
				continue
			}
			tasks[i] = updated
		}
	}

	p.mu.Lock()
	p.caption = buildCaption(tasks, now)
	p.mu.Unlock()
}

// Status returns the one-line summary produced by the last tick.
func (p *Poller) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.caption
}

func buildCaption(tasks []models.Task, now time.Time) string {
	var running []string
	var upcoming []models.Task
	for _, t := range tasks {
		if t.Status == models.RunningTaskStatus {
			running = append(running, t.Name)
		} else if t.Active && t.NextRun != nil {
			upcoming = append(upcoming, t)
		}
	}

	if len(running) > 0 {
		return fmt.Sprintf("Running: %s", strings.Join(running, ", "))
	}
	if len(upcoming) > 0 {
		sort.Slice(upcoming, func(i, j int) bool {
			return upcoming[i].NextRun.Before(*upcoming[j].NextRun)
		})
		next := upcoming[0]
		return fmt.Sprintf("Next: %s in %s", next.Name, models.FormatCountdown(next.NextRun.Sub(now)))
	}
	if len(tasks) > 0 {
		return "All tasks idle or paused."
	}
	return "No tasks defined."
}
