package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type traceDataKey struct{}
type ownerKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// WithOwner records the requesting user. Authentication happens upstream;
// this only carries the resolved id.
func WithOwner(ctx context.Context, ownerUserID uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerKey{}, ownerUserID)
}

func GetOwner(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(ownerKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
