// Package auditcontext carries who caused a change, and from where, down to
// the audit writer without threading it through every service signature.
package auditcontext

import "context"

type originKey struct{}

// Origin is the request metadata stamped on audit rows.
type Origin struct {
	RequestID string
	ActorType string
	ActorID   string
	IPAddress string
	UserAgent string
}

// OriginFromContext returns a copy of the origin stored in ctx.
func OriginFromContext(ctx context.Context) Origin {
	if o, ok := ctx.Value(originKey{}).(Origin); ok {
		return o
	}
	return Origin{}
}

func update(ctx context.Context, apply func(*Origin)) context.Context {
	o := OriginFromContext(ctx)
	apply(&o)
	return context.WithValue(ctx, originKey{}, o)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return update(ctx, func(o *Origin) { o.RequestID = requestID })
}

func RequestIDFromContext(ctx context.Context) string {
	return OriginFromContext(ctx).RequestID
}

// WithActor records the actor. Empty parts leave the previous value in place.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	if actorType == "" && actorID == "" {
		return ctx
	}
	return update(ctx, func(o *Origin) {
		if actorType != "" {
			o.ActorType = actorType
		}
		if actorID != "" {
			o.ActorID = actorID
		}
	})
}

func ActorFromContext(ctx context.Context) (string, string) {
	o := OriginFromContext(ctx)
	return o.ActorType, o.ActorID
}

func WithIPAddress(ctx context.Context, ipAddress string) context.Context {
	if ipAddress == "" {
		return ctx
	}
	return update(ctx, func(o *Origin) { o.IPAddress = ipAddress })
}

func IPAddressFromContext(ctx context.Context) string {
	return OriginFromContext(ctx).IPAddress
}

func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	if userAgent == "" {
		return ctx
	}
	return update(ctx, func(o *Origin) { o.UserAgent = userAgent })
}

func UserAgentFromContext(ctx context.Context) string {
	return OriginFromContext(ctx).UserAgent
}
