package ft

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfsorg/tbcwallet-go/log"
	"github.com/bitfsorg/tbcwallet-go/txerr"
	"github.com/lightningnetwork/lnd/clock"
)

const opMerge = "ft.merge"

// StepFunc runs one merge iteration (numbered from 1) and reports whether
// merging is complete.
type StepFunc func(ctx context.Context, iteration int) (done bool, err error)

// MergeWithBackoff runs step up to maxIterations times, waiting delay on
// clk between iterations so the previous merge can propagate. It returns
// nil as soon as a step reports done. Exhausting the iterations, or a step
// error without a more specific kind, is MergeFailed.
func MergeWithBackoff(ctx context.Context, clk clock.Clock, step StepFunc, maxIterations int, delay time.Duration) error {
	if maxIterations <= 0 {
		return txerr.New(txerr.Validation, opMerge, fmt.Errorf("%w: max iterations %d", ErrInvalidParams, maxIterations))
	}
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	for i := 1; i <= maxIterations; i++ {
		done, err := step(ctx, i)
		if err != nil {
			if txerr.KindOf(err) != txerr.Unknown {
				return err
			}
			return txerr.New(txerr.MergeFailed, opMerge, fmt.Errorf("%w: iteration %d: %w", ErrMergeFailed, i, err))
		}
		if done {
			log.FT.Debug().Int("iterations", i).Msg("merge complete")
			return nil
		}
		if i == maxIterations {
			break
		}
		select {
		case <-clk.TickAfter(delay):
		case <-ctx.Done():
			return txerr.New(txerr.MergeFailed, opMerge, fmt.Errorf("%w: %w", ErrMergeFailed, ctx.Err()))
		}
	}
	return txerr.New(txerr.MergeFailed, opMerge,
		fmt.Errorf("%w: not done after %d iterations", ErrMergeFailed, maxIterations))
}
