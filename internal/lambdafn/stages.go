package lambdafn

import (
	"context"
	"log/slog"

	"github.com/kozaktomas/snaprace/internal/logging"
	"github.com/kozaktomas/snaprace/internal/pipeline"
)

// ContextStage is a pipeline stage that hands the context to the next stage
type ContextStage interface {
	Run(ctx context.Context, in pipeline.Context) (pipeline.Context, error)
}

// FinalStage is the last pipeline stage
type FinalStage interface {
	Run(ctx context.Context, in pipeline.Context) (pipeline.DBUpdateResult, error)
}

// Stage wraps a context-passing stage as a state machine task handler.
type Stage struct {
	name   string
	stage  ContextStage
	logger *slog.Logger
}

func NewStage(name string, stage ContextStage, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Stage{name: name, stage: stage, logger: logger}
}

// Handle runs the stage. Errors are returned so the orchestrator can retry.
func (s *Stage) Handle(ctx context.Context, in pipeline.Context) (pipeline.Context, error) {
	out, err := s.stage.Run(ctx, in)
	if err != nil {
		withRequestID(ctx, s.logger).Error("stage failed", "function", s.name, "objectKey", in.ObjectKey, "error", err)
		return out, err
	}
	return out, nil
}

// Final wraps the DB-Update stage.
type Final struct {
	stage  FinalStage
	logger *slog.Logger
}

func NewFinal(stage FinalStage, logger *slog.Logger) *Final {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Final{stage: stage, logger: logger}
}

func (f *Final) Handle(ctx context.Context, in pipeline.Context) (pipeline.DBUpdateResult, error) {
	out, err := f.stage.Run(ctx, in)
	if err != nil {
		withRequestID(ctx, f.logger).Error("stage failed", "function", FuncDBUpdate, "objectKey", in.ObjectKey, "error", err)
		return out, err
	}
	return out, nil
}
