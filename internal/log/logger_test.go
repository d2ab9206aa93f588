package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_ComponentAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Output: &buf})

	logger.Info("Started")
	logger.WithComponent(ComponentRenewal).InfoContext(context.Background(), "Processed", FieldProcessed, 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "component=app")
	assert.Contains(t, lines[1], "component=renewal")
	assert.Contains(t, lines[1], "processed=3")
	assert.Equal(t, 1, strings.Count(lines[1], "component="))
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf, Component: ComponentNotify})

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestFromContext(t *testing.T) {
	t.Run("falls back to default", func(t *testing.T) {
		logger := FromContext(context.Background())
		require.NotNil(t, logger)
		assert.Equal(t, "unknown", logger.Component())
	})

	t.Run("run scoped logger", func(t *testing.T) {
		var buf bytes.Buffer
		ctx := WithLogger(context.Background(), New(Config{Output: &buf}))
		ctx = WithRun(ctx, ComponentScheduler, "run-1")

		logger := FromContext(ctx)
		assert.Equal(t, ComponentScheduler, logger.Component())
		logger.InfoContext(ctx, "Job finished")
		assert.Contains(t, buf.String(), "run_id=run-1")
		assert.Contains(t, buf.String(), "component=scheduler")
	})
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithComponent(ComponentLedger).
		WithOperation(OpRegenerate).
		WithSubscription(42).
		WithPeriod(2024, 3).
		WithError(errors.New("boom")).
		WithError(nil)

	assert.Equal(t, ComponentLedger, fields[FieldComponent])
	assert.Equal(t, int64(42), fields[FieldSubscriptionID])
	assert.Equal(t, 3, fields[FieldMonth])
	assert.Equal(t, "boom", fields[FieldError])
	assert.Len(t, fields.ToSlice(), 2*len(fields))

	batch := NewFields().WithBatch(5, 0, 12)
	assert.Equal(t, true, batch[FieldSuccess])
	batch = NewFields().WithBatch(5, 2, 12)
	assert.Equal(t, false, batch[FieldSuccess])

	n := NewFields().WithNotification("renewal_reminder", "")
	_, hasChannel := n[FieldChannel]
	assert.False(t, hasChannel)
}
