package userctx

import "context"

// Context key type
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	operatorKey  contextKey = "operator"
)

// Operator is the caller admitted by the auth gate.
type Operator struct {
	// Channel names the credential channel that accepted the caller.
	Channel string
	Subject string
}

// SetRequestID adds the request id to the context
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID retrieves the request id, or "" when none was assigned
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// SetOperator adds the authenticated operator to the context
func SetOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}

// GetOperator retrieves the authenticated operator
func GetOperator(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey).(Operator)
	return op, ok
}

// OperatorName returns the operator subject for log fields, "anonymous" when unauthenticated
func OperatorName(ctx context.Context) string {
	if op, ok := GetOperator(ctx); ok && op.Subject != "" {
		return op.Subject
	}
	return "anonymous"
}
