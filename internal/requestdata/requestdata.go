package requestdata

import "context"

type contextKey struct{}

// RequestData carries the authenticated identity plus the raw bearer token,
// which is forwarded verbatim to downstream collaborators.
type RequestData struct {
	UserID string
	Bearer string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, contextKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(contextKey{}).(*RequestData)
	return rd
}
