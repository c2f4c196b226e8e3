package recall

import (
	"context"

	"github.com/petrijr/recall/pkg/api"
)

// CallBuilder provides a fluent API for composing requests:
//
//	resp, err := recall.NewCall("submit-order").
//	    WithParams(order).
//	    WithFamily("billing").
//	    WithSpinner(recall.SpinnerInstant).
//	    Dispatch(ctx, engine)
type CallBuilder struct {
	req api.Request
}

// NewCall creates a builder for a call of the given type.
func NewCall(callType string) *CallBuilder {
	if callType == "" {
		panic("recall: call type must not be empty")
	}
	return &CallBuilder{
		req: api.Request{Type: callType},
	}
}

// WithParams sets the call parameters handed to the transport.
func (b *CallBuilder) WithParams(params any) *CallBuilder {
	b.req.Params = params
	return b
}

// WithFamily marks the call as part of a transaction family. At most one
// call per family is in flight at a time; later calls of the same family
// wait for the earlier one to conclude.
func (b *CallBuilder) WithFamily(family string) *CallBuilder {
	b.req.Family = family
	return b
}

// WithSpinner sets the requested indicator mode for the call.
func (b *CallBuilder) WithSpinner(mode SpinnerMode) *CallBuilder {
	b.req.Spinner = mode
	return b
}

// WithRetry attaches a retry policy, honored by the detached dispatch path.
func (b *CallBuilder) WithRetry(policy RetryPolicy) *CallBuilder {
	// Copy so callers can mutate their RetryPolicy after the call without
	// affecting the built request.
	p := policy
	b.req.Retry = &p
	return b
}

// Request returns the built request. Typically used when interacting with
// lower-level APIs.
func (b *CallBuilder) Request() *Request {
	r := b.req
	return &r
}

// Dispatch performs the built call on eng, blocking until it concludes.
func (b *CallBuilder) Dispatch(ctx context.Context, eng Engine) (*Response, error) {
	return eng.Call(ctx, b.Request())
}

// DispatchDetached performs the built call on eng's best-effort path.
func (b *CallBuilder) DispatchDetached(ctx context.Context, eng Engine) (*Response, error) {
	return eng.CallDetached(ctx, b.Request())
}
