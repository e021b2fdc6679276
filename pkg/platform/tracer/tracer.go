// Package tracer provides a lightweight tracing abstraction for the registry.
//
// The lifecycle service starts one span per operation through this interface so
// it never imports OpenTelemetry directly.
//
// Implementations:
//   - NoopTracer: for tests and when tracing is disabled
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import "context"

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a span; the returned context carries it to child operations.
	//
	//   ctx, span := t.Start(ctx, tracer.SpanIssue, tracer.String(tracer.AttrRecipient, r))
	//   defer func() { span.End(err) }()
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Uint64 records an unsigned value; OpenTelemetry has no unsigned attribute so
// values above MaxInt64 are exported as strings.
func Uint64(key string, value uint64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Span names used by the registry.
const (
	SpanIssue              = "registry.issue"
	SpanVerify             = "registry.verify"
	SpanRevoke             = "registry.revoke"
	SpanGetCredential      = "registry.get_credential"
	SpanGetUserCredentials = "registry.get_user_credentials"
	SpanGetCredentialCount = "registry.get_credential_count"
	SpanInitialize         = "registry.initialize"
)

// Attribute keys used by the registry.
const (
	AttrCredentialID = "credential.id"
	AttrRecipient    = "credential.recipient"
	AttrCaller       = "caller.identity"
	AttrRevoked      = "credential.revoked"
	AttrValid        = "credential.valid"
	AttrCount        = "registry.count"
)

// Event names used by the registry.
const (
	EventCommitted = "registry.committed"
	EventNotified  = "profile.notified"
)
