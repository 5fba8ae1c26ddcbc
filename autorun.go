package contactsync

import (
	"context"
	"time"

	"github.com/agentstation/contactsync/pkg/errors"
	"github.com/agentstation/contactsync/pkg/logging"
)

// AutoRunOn starts running the pipeline every interval with opts applied to
// each run. A tick that arrives while a run is still in flight is skipped.
// Calling it again replaces the previous schedule.
func (s *Syncer) AutoRunOn(interval time.Duration, opts ...Option) error {
	if interval <= 0 {
		return &errors.ValidationError{
			Field:   "interval",
			Value:   interval,
			Message: "run interval must be positive",
		}
	}

	// Stop any existing schedule to prevent leaking its goroutine
	if err := s.AutoRunOff(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Recreate stopCh since it was closed in AutoRunOff
	s.stopCh = make(chan struct{})
	s.ticker = time.NewTicker(interval)

	ctx, cancel := context.WithCancel(context.Background())
	s.autoCancel = cancel

	go s.autoRun(ctx, s.ticker.C, s.stopCh, opts)

	return nil
}

func (s *Syncer) autoRun(ctx context.Context, tick <-chan time.Time, stop <-chan struct{}, opts []Option) {
	for {
		select {
		case <-tick:
			runCtx, cancel := context.WithTimeout(ctx, s.base.runTimeout)
			_, err := s.Run(runCtx, opts...)
			cancel()

			switch {
			case err == nil:
			case errors.Is(err, errors.ErrRunInProgress):
				logging.Warn().Msg("Previous run still in progress, skipping this one")
			case ctx.Err() != nil:
				return
			default:
				logging.Error().Err(err).Msg("Scheduled run failed")
			}
		case <-ctx.Done():
			return
		case <-stop:
			return
		}
	}
}

// AutoRunOff stops scheduled runs. A run already in flight is canceled.
func (s *Syncer) AutoRunOff() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	if s.autoCancel != nil {
		s.autoCancel()
		s.autoCancel = nil
	}
	select {
	case <-s.stopCh:
		// Already closed
	default:
		close(s.stopCh)
	}
	return nil
}
