package reports

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var buildGroup singleflight.Group

// singleflightBuild collapses concurrent builds of the same report.
func singleflightBuild[T any](ctx context.Context, key string, fn func(context.Context) (T, error)) (T, error, bool) {
	resultChan := buildGroup.DoChan(key, func() (interface{}, error) {
		return fn(context.WithoutCancel(ctx))
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err(), false
	case res := <-resultChan:
		if res.Err != nil {
			return zero, res.Err, res.Shared
		}
		return res.Val.(T), nil, res.Shared
	}
}
