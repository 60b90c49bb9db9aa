// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package portfolio

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// EvaluateAll values many users concurrently, with at most limit evaluations
// in flight. A limit <= 0 means no limit. Results are index-aligned with
// snapshots. The first error cancels the remaining work.
func (v *Valuer) EvaluateAll(ctx context.Context, snapshots []Snapshot, limit int) ([]UserMetrics, error) {
	results := make([]UserMetrics, len(snapshots))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, s := range snapshots {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			metrics, err := v.User(s)
			if err != nil {
				return err
			}
			results[i] = metrics
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
