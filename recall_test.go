package recall

import (
	"context"
	"sync/atomic"
	"testing"
)

func echoEngine(t *testing.T) Engine {
	t.Helper()

	eng, err := NewEngine(Config{
		Transport: TransportFunc(func(ctx context.Context, req *Request) (*Response, error) {
			return &Response{Payload: req.Type}, nil
		}),
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	t.Cleanup(eng.Close)
	return eng
}

func TestCall_Wrapper(t *testing.T) {
	eng := echoEngine(t)

	resp, err := Call(context.Background(), eng, &Request{Type: "fetch-profile"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.Payload != "fetch-profile" {
		t.Fatalf("expected payload fetch-profile, got %v", resp.Payload)
	}
	if eng.State() != StatusIdle {
		t.Fatalf("expected engine back to IDLE, got %v", eng.State())
	}
}

func TestCallAll_ReturnsResultsInRequestOrder(t *testing.T) {
	eng := echoEngine(t)

	resps, err := CallAll(context.Background(), eng,
		&Request{Type: "a"},
		&Request{Type: "b"},
		&Request{Type: "c"},
	)
	if err != nil {
		t.Fatalf("CallAll failed: %v", err)
	}
	if len(resps) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(resps))
	}
	for i, want := range []string{"a", "b", "c"} {
		if resps[i].Payload != want {
			t.Fatalf("response %d: expected %q, got %v", i, want, resps[i].Payload)
		}
	}
}

func TestCallAll_PropagatesFault(t *testing.T) {
	var n atomic.Int32
	eng, err := NewEngine(Config{
		Transport: TransportFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if n.Add(1) == 1 {
				return nil, NewServerFault("E42", "rejected")
			}
			return &Response{}, nil
		}),
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	defer eng.Close()

	_, err = CallAll(context.Background(), eng, &Request{Type: "x"})
	if err == nil {
		t.Fatalf("expected a fault from CallAll")
	}
	if fault, ok := IsServerFault(err); !ok || fault.Code != "E42" {
		t.Fatalf("expected server fault E42, got %v", err)
	}
}
