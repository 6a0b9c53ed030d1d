package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sfn/types"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,80}$`)

func TestExecutionName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	in := Input{Organizer: "org", EventID: "evt", ObjectKey: "org/evt/photos/raw/a.jpg"}

	name := ExecutionName(in, now)
	if !strings.HasPrefix(name, "photo-org-evt-") || !strings.HasSuffix(name, "-1700000000123") {
		t.Errorf("name = %q", name)
	}
	if ExecutionName(in, now) != name {
		t.Error("same key and time must give the same name")
	}

	other := in
	other.ObjectKey = "org/evt/photos/raw/b.jpg"
	if ExecutionName(other, now) == name {
		t.Error("different keys in the same millisecond must not collide")
	}
}

func TestExecutionName_Sanitized(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{name: "spaces and symbols", in: Input{Organizer: "Seoul Marathon!", EventID: "2024/10 (full)"}},
		{name: "unicode", in: Input{Organizer: "서울", EventID: "마라톤"}},
		{name: "very long", in: Input{Organizer: strings.Repeat("o", 60), EventID: strings.Repeat("e", 60)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExecutionName(tt.in, time.UnixMilli(42))
			if !namePattern.MatchString(got) {
				t.Errorf("name %q violates the execution name charset or length", got)
			}
			if !strings.HasSuffix(got, "-42") {
				t.Errorf("timestamp suffix lost: %q", got)
			}
		})
	}
}

type fakeSFN struct {
	inputs []*sfn.StartExecutionInput
	err    error
}

func (f *fakeSFN) StartExecution(ctx context.Context, in *sfn.StartExecutionInput, _ ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sfn.StartExecutionOutput{ExecutionArn: aws.String("arn:exec:" + aws.ToString(in.Name))}, nil
}

func TestStepFunctions_Start(t *testing.T) {
	api := &fakeSFN{}
	s := NewStepFunctions(api, "arn:sm")
	in := Input{Bucket: "b", ObjectKey: "org/evt/photos/raw/a.jpg", Organizer: "org", EventID: "evt"}

	arn, err := s.Start(context.Background(), "photo-1", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arn != "arn:exec:photo-1" {
		t.Errorf("arn = %q", arn)
	}
	if aws.ToString(api.inputs[0].StateMachineArn) != "arn:sm" {
		t.Errorf("state machine = %q", aws.ToString(api.inputs[0].StateMachineArn))
	}

	var sent Input
	if err := json.Unmarshal([]byte(aws.ToString(api.inputs[0].Input)), &sent); err != nil {
		t.Fatalf("input is not json: %v", err)
	}
	if sent != in {
		t.Errorf("sent %+v, want %+v", sent, in)
	}
}

func TestStepFunctions_StartErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantExists bool
	}{
		{name: "already exists", err: &types.ExecutionAlreadyExists{Message: aws.String("dup")}, wantExists: true},
		{name: "throttled", err: errors.New("ThrottlingException")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStepFunctions(&fakeSFN{err: tt.err}, "arn:sm")
			_, err := s.Start(context.Background(), "photo-1", Input{})
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrExecutionExists) != tt.wantExists {
				t.Errorf("errors.Is(ErrExecutionExists) = %v, want %v (err %v)", !tt.wantExists, tt.wantExists, err)
			}
		})
	}
}

func TestLocal_Start(t *testing.T) {
	var runs []Input
	l := NewLocal(func(ctx context.Context, in Input) error {
		runs = append(runs, in)
		if in.ObjectKey == "bad" {
			return errors.New("boom")
		}
		return nil
	}, nil)
	ctx := context.Background()

	id, err := l.Start(ctx, "n1", Input{ObjectKey: "good"})
	if err != nil || !strings.HasPrefix(id, "local:") {
		t.Fatalf("Start = (%q, %v)", id, err)
	}

	if _, err := l.Start(ctx, "n1", Input{ObjectKey: "good"}); !errors.Is(err, ErrExecutionExists) {
		t.Errorf("duplicate name error = %v, want ErrExecutionExists", err)
	}

	id, err = l.Start(ctx, "n2", Input{ObjectKey: "bad"})
	if err == nil || id == "" {
		t.Errorf("failing run = (%q, %v), want id and error", id, err)
	}

	if len(runs) != 2 {
		t.Errorf("runs = %d, want 2", len(runs))
	}
}
