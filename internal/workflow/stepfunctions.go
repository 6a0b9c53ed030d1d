package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sfn/types"
)

// SFNAPI is the subset of the Step Functions client used here
type SFNAPI interface {
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
}

// StepFunctions starts executions of one state machine.
type StepFunctions struct {
	api             SFNAPI
	stateMachineARN string
}

func NewStepFunctions(api SFNAPI, stateMachineARN string) *StepFunctions {
	return &StepFunctions{api: api, stateMachineARN: stateMachineARN}
}

// Start starts an execution and returns its ARN. A name collision is
// reported as ErrExecutionExists.
func (s *StepFunctions) Start(ctx context.Context, name string, in Input) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode execution input: %w", err)
	}

	out, err := s.api.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(s.stateMachineARN),
		Name:            aws.String(name),
		Input:           aws.String(string(payload)),
	})
	if err != nil {
		var exists *types.ExecutionAlreadyExists
		if errors.As(err, &exists) {
			return "", fmt.Errorf("%w: %s", ErrExecutionExists, name)
		}
		return "", fmt.Errorf("start execution %s: %w", name, err)
	}
	return aws.ToString(out.ExecutionArn), nil
}
