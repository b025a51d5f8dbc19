package judge

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrStreamClosed is returned when the channel closes before a terminal result.
var ErrStreamClosed = errors.New("judge stream closed before a terminal result")

// Receiver yields raw push messages one at a time. Receive blocks until a
// message arrives, the context ends, or the stream fails.
type Receiver interface {
	Receive(ctx context.Context) ([]byte, error)
}

// RenderFunc draws the current progress. It runs on the receive goroutine.
type RenderFunc func(Progress)

// Watch runs the receive, merge, render cycle until the tracked result is
// terminal. Messages that do not decode are logged and skipped. Messages are
// applied strictly in arrival order.
func Watch(ctx context.Context, recv Receiver, tracker *Tracker, render RenderFunc, logger *zap.Logger) (Progress, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for !tracker.Ended() {
		msg, err := recv.Receive(ctx)
		if err != nil {
			return tracker.Progress(), fmt.Errorf("receive judge update: %w", err)
		}
		if msg == nil {
			return tracker.Progress(), ErrStreamClosed
		}
		env, err := DecodeEnvelope(msg)
		if err != nil {
			logger.Warn("skipping undecodable judge message", zap.Error(err), zap.ByteString("message", msg))
			continue
		}
		if !tracker.Apply(env) {
			logger.Debug("ignoring push event", zap.String("event", env.Event))
			continue
		}
		if render != nil {
			render(tracker.Progress())
		}
	}
	return tracker.Progress(), nil
}
