package pipeline

import (
	"context"

	"github.com/kozaktomas/snaprace/internal/workflow"
)

// Pipeline runs the orchestrated stages in order, in process.
type Pipeline struct {
	DetectText *DetectText
	IndexFaces *IndexFaces
	DBUpdate   *DBUpdate
}

// Run executes every stage for one photo and returns the final result.
func (p *Pipeline) Run(ctx context.Context, in workflow.Input) (DBUpdateResult, error) {
	c, err := p.DetectText.Run(ctx, ContextFromInput(in))
	if err != nil {
		return DBUpdateResult{Context: c}, err
	}
	if c, err = p.IndexFaces.Run(ctx, c); err != nil {
		return DBUpdateResult{Context: c}, err
	}
	return p.DBUpdate.Run(ctx, c)
}

// RunFunc adapts the pipeline to the local workflow runner.
func (p *Pipeline) RunFunc() workflow.RunFunc {
	return func(ctx context.Context, in workflow.Input) error {
		_, err := p.Run(ctx, in)
		return err
	}
}
