package models_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/ignatij/letterflow/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestNewTask(t *testing.T) {
	task, err := models.NewTask("Weekly digest", "keep it short", 300, "claude-sonnet-4-6", models.SourceSet{}, nil, nil)
	assert.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Weekly digest", task.Name)
	assert.Equal(t, 300, task.Interval)
	assert.True(t, task.Active)
	assert.Equal(t, models.IdleTaskStatus, task.Status)
	assert.Nil(t, task.NextRun)
	assert.Nil(t, task.LastRun)
	assert.Empty(t, task.Outputs)
}

func TestNewTaskRequiresName(t *testing.T) {
	_, err := models.NewTask("", "", 300, "m", models.SourceSet{}, nil, nil)
	assert.Error(t, err)
}

func TestNewTaskClampsInterval(t *testing.T) {
	for _, interval := range []int{-10, 0, 1, 59} {
		task, err := models.NewTask("t", "", interval, "m", models.SourceSet{}, nil, nil)
		assert.NoError(t, err)
		assert.Equal(t, models.MinInterval, task.Interval, "interval %d should clamp", interval)
	}

	task, err := models.NewTask("t", "", 60, "m", models.SourceSet{}, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, 60, task.Interval)
}

func TestScheduleNext(t *testing.T) {
	task, _ := models.NewTask("t", "", 300, "m", models.SourceSet{}, nil, nil)
	from := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	models.ScheduleNext(&task, from)
	assert.NotNil(t, task.NextRun)
	assert.Equal(t, from.Add(5*time.Minute), *task.NextRun)
}

func TestScheduleNextZeroFromUsesNow(t *testing.T) {
	task, _ := models.NewTask("t", "", 60, "m", models.SourceSet{}, nil, nil)
	before := time.Now().UTC()
	models.ScheduleNext(&task, time.Time{})
	after := time.Now().UTC()
	assert.NotNil(t, task.NextRun)
	assert.False(t, task.NextRun.Before(before.Add(time.Minute)))
	assert.False(t, task.NextRun.After(after.Add(time.Minute)))
}

func TestAppendOutputEvictsOldest(t *testing.T) {
	task, _ := models.NewTask("t", "", 300, "m", models.SourceSet{}, nil, nil)
	for i := 0; i < 8; i++ {
		task.AppendOutput(models.Output{Text: fmt.Sprintf("draft %d", i)})
		expected := i + 1
		if expected > models.MaxOutputs {
			expected = models.MaxOutputs
		}
		assert.Len(t, task.Outputs, expected)
		assert.Equal(t, fmt.Sprintf("draft %d", i), task.Outputs[0].Text, "newest output first")
	}
	// Oldest three were evicted.
	assert.Equal(t, "draft 3", task.Outputs[models.MaxOutputs-1].Text)
}

func TestDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Second)
	notYet := now.Add(time.Second)

	tests := []struct {
		name     string
		active   bool
		status   models.TaskStatus
		nextRun  *time.Time
		expected bool
	}{
		{"due and active", true, models.IdleTaskStatus, &due, true},
		{"due after error", true, models.ErrorTaskStatus, &due, true},
		{"not yet due", true, models.IdleTaskStatus, &notYet, false},
		{"paused", false, models.IdleTaskStatus, &due, false},
		{"already running", true, models.RunningTaskStatus, &due, false},
		{"never scheduled", true, models.IdleTaskStatus, nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			task := models.Task{Active: tc.active, Status: tc.status, NextRun: tc.nextRun}
			assert.Equal(t, tc.expected, task.Due(now))
		})
	}
}
