package entity

import (
	"context"
)

type (
	CtxKeyIP        struct{}
	CtxKeyDeviceID  struct{}
	CtxKeyActor     struct{}
	CtxKeyUserAgent struct{}
)

func IPFromCtx(ctx context.Context) string {
	ip, ok := ctx.Value(CtxKeyIP{}).(string)
	if !ok {
		return ""
	}

	return ip
}

func DeviceIDFromCtx(ctx context.Context) string {
	deviceID, ok := ctx.Value(CtxKeyDeviceID{}).(string)
	if !ok {
		return ""
	}

	return deviceID
}

func UserAgentFromCtx(ctx context.Context) string {
	ua, ok := ctx.Value(CtxKeyUserAgent{}).(string)
	if !ok {
		return ""
	}

	return ua
}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, CtxKeyActor{}, a)
}

// ActorFromCtx returns the authenticated actor. A missing or incomplete
// actor reports false.
func ActorFromCtx(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(CtxKeyActor{}).(Actor)
	if !ok || !a.Valid() {
		return Actor{}, false
	}

	return a, true
}
