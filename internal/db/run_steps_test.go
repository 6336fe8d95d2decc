package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTerminalStepStatus(t *testing.T) {
	assert.False(t, IsTerminalStepStatus(StepStatusPending))
	assert.False(t, IsTerminalStepStatus(StepStatusInProgress))
	assert.True(t, IsTerminalStepStatus(StepStatusCompleted))
	assert.True(t, IsTerminalStepStatus(StepStatusFailed))
	assert.True(t, IsTerminalStepStatus(StepStatusSkipped))
}

func TestStepTimes(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("start stamps started_at once", func(t *testing.T) {
		started, completed, duration := stepTimes(&RunStep{}, StepStatusInProgress, now)
		require.NotNil(t, started)
		assert.Equal(t, now, *started)
		assert.Nil(t, completed)
		assert.Nil(t, duration)

		earlier := now.Add(-time.Minute)
		started, _, _ = stepTimes(&RunStep{StartedAt: &earlier}, StepStatusInProgress, now)
		assert.Nil(t, started)
	})

	t.Run("completion measures duration", func(t *testing.T) {
		begun := now.Add(-1500 * time.Millisecond)
		started, completed, duration := stepTimes(&RunStep{StartedAt: &begun}, StepStatusCompleted, now)
		assert.Nil(t, started)
		require.NotNil(t, completed)
		require.NotNil(t, duration)
		assert.Equal(t, 1500, *duration)
	})

	t.Run("skip without start has no duration", func(t *testing.T) {
		_, completed, duration := stepTimes(&RunStep{}, StepStatusSkipped, now)
		assert.NotNil(t, completed)
		assert.Nil(t, duration)
	})
}

func TestRunStepInput(t *testing.T) {
	input := &RunStepInput{
		Step:       "youtube_fetch",
		Category:   StepCategoryCollection,
		Status:     StepStatusPending,
		Parameters: map[string]any{"handle": "@janedoe"},
	}
	assert.Equal(t, StepCategoryCollection, input.Category)
	assert.Equal(t, map[string]any{"handle": "@janedoe"}, input.Parameters)
}
