package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Supervisor keeps one transport running for the life of the process.
// After a drop it backs off, reruns the transport, and fires the hub's
// reconnect hooks so boards can reseed whatever was missed.
type Supervisor struct {
	Feed    Feed
	Hub     *Hub
	Backoff time.Duration
	Log     zerolog.Logger
}

func (s *Supervisor) Run(ctx context.Context) error {
	backoff := s.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	for {
		err := s.Feed.Run(ctx, s.Hub.Dispatch)
		if ctx.Err() != nil {
			return nil
		}
		s.Log.Warn().Err(err).Dur("backoff", backoff).Msg("feed dropped, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		s.Hub.NotifyReconnect(ctx)
	}
}
