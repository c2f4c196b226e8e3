package recall

import (
	"context"
	"testing"
	"time"
)

func TestNewCall_BuildsRequest(t *testing.T) {
	req := NewCall("submit-order").
		WithParams(map[string]any{"order": 7}).
		WithFamily("billing").
		WithSpinner(SpinnerInstant).
		WithRetry(Retry(3).WithConstantBackoff(10 * time.Millisecond).Policy()).
		Request()

	if req.Type != "submit-order" {
		t.Fatalf("expected type submit-order, got %q", req.Type)
	}
	if req.Family != "billing" {
		t.Fatalf("expected family billing, got %q", req.Family)
	}
	if req.Spinner != SpinnerInstant {
		t.Fatalf("expected SpinnerInstant, got %v", req.Spinner)
	}
	if req.Retry == nil || req.Retry.MaxAttempts != 3 {
		t.Fatalf("expected retry policy with MaxAttempts=3, got %+v", req.Retry)
	}
}

func TestNewCall_EmptyTypePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for empty call type")
		}
	}()
	NewCall("")
}

func TestNewCall_RetryPolicyIsCopied(t *testing.T) {
	policy := Retry(2).Policy()
	req := NewCall("ping").WithRetry(policy).Request()

	policy.MaxAttempts = 99
	if req.Retry.MaxAttempts != 2 {
		t.Fatalf("stored retry policy mutated through caller copy: %+v", req.Retry)
	}
}

func TestCallBuilder_Dispatch(t *testing.T) {
	eng, err := NewEngine(Config{
		Transport: TransportFunc(func(ctx context.Context, req *Request) (*Response, error) {
			return &Response{Payload: req.Params}, nil
		}),
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer eng.Close()

	resp, err := NewCall("echo").WithParams("hello").Dispatch(context.Background(), eng)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if resp.Payload != "hello" {
		t.Fatalf("expected payload hello, got %v", resp.Payload)
	}
}
