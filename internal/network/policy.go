package network

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of upstream work. Tasks write their results into
// caller-owned slots so that merging happens in a fixed order afterwards.
type Task func(ctx context.Context)

// Policy decides how a batch of independent tasks is executed.
type Policy interface {
	// Run executes every task and returns once all have finished. It returns
	// the context error if ctx was done before or during the batch.
	Run(ctx context.Context, tasks []Task) error

	// Name identifies the policy in logs.
	Name() string
}

type sequentialPolicy struct{}

// Sequential runs tasks one at a time, in order. It is the default: the
// upstream enforces a request budget and the HTTP client paces calls anyway.
func Sequential() Policy {
	return sequentialPolicy{}
}

func (sequentialPolicy) Run(ctx context.Context, tasks []Task) error {
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		task(ctx)
	}
	return ctx.Err()
}

func (sequentialPolicy) Name() string { return "sequential" }

type boundedPolicy struct {
	limit int
}

// Bounded runs up to limit tasks concurrently. A limit of one or less is
// equivalent to Sequential.
func Bounded(limit int) Policy {
	if limit <= 1 {
		return Sequential()
	}
	return boundedPolicy{limit: limit}
}

func (p boundedPolicy) Run(ctx context.Context, tasks []Task) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)

	for _, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			task(gctx)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (p boundedPolicy) Name() string { return "bounded" }
