package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/snaprace/internal/logging"
)

// RunFunc executes every stage of one photo.
type RunFunc func(ctx context.Context, in Input) error

// Local runs executions synchronously in the calling goroutine.
type Local struct {
	run    RunFunc
	logger *slog.Logger

	mu      sync.Mutex
	started map[string]string
}

func NewLocal(run RunFunc, logger *slog.Logger) *Local {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Local{run: run, logger: logger, started: make(map[string]string)}
}

// Start runs the execution to completion. The returned id is set even when
// the run fails.
func (l *Local) Start(ctx context.Context, name string, in Input) (string, error) {
	l.mu.Lock()
	if _, ok := l.started[name]; ok {
		l.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrExecutionExists, name)
	}
	id := "local:" + uuid.NewString()
	l.started[name] = id
	l.mu.Unlock()

	start := time.Now()
	err := l.run(ctx, in)
	l.logger.Debug("local execution finished",
		"execution", name,
		"executionId", id,
		"objectKey", in.ObjectKey,
		"duration", time.Since(start),
		"error", err)
	if err != nil {
		return id, fmt.Errorf("execution %s: %w", name, err)
	}
	return id, nil
}
