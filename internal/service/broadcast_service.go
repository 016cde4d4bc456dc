package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_shopbot/internal/notify"
	"github.com/fjod/go_shopbot/internal/repository"
	"go.uber.org/zap"
)

// BroadcastReport is the tally sent to the admin once a broadcast ends.
const BroadcastReport = "Broadcast finished: %d sent, %d failed."

const reportTimeout = 10 * time.Second

type Fanout interface {
	Broadcast(ctx context.Context, recipients []int64, msg notify.Message) notify.Result
}

// Reporter delivers the final tally to the admin who started a broadcast.
type Reporter interface {
	SendText(ctx context.Context, userID int64, text string) error
}

// BroadcastService sends an admin message to every registered user. The
// fan-out runs in the background so a throttled batch never depends on the
// deadline of the request that started it.
type BroadcastService struct {
	users    repository.UserRepository
	fanout   Fanout
	reporter Reporter
	log      *zap.Logger

	base context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

func NewBroadcastService(users repository.UserRepository, fanout Fanout, reporter Reporter, log *zap.Logger) *BroadcastService {
	base, stop := context.WithCancel(context.Background())
	return &BroadcastService{
		users:    users,
		fanout:   fanout,
		reporter: reporter,
		log:      log,
		base:     base,
		stop:     stop,
	}
}

// Start snapshots the recipient list and begins the fan-out. It returns the
// number of recipients; the tally is reported to adminID when the batch ends.
func (s *BroadcastService) Start(ctx context.Context, adminID int64, msg notify.Message) (int, error) {
	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recipients: %w", err)
	}

	// keep request values (trace ids) but drop its deadline
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopOnShutdown := context.AfterFunc(s.base, cancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stopOnShutdown()
		defer cancel()

		res := s.fanout.Broadcast(runCtx, ids, msg)
		s.log.Info("broadcast delivered",
			zap.Int64("admin_id", adminID),
			zap.Int("recipients", len(ids)),
			zap.Int("sent", res.Sent),
			zap.Int("failed", res.Failed))

		reportCtx, cancelReport := context.WithTimeout(context.WithoutCancel(runCtx), reportTimeout)
		defer cancelReport()
		if err := s.reporter.SendText(reportCtx, adminID, fmt.Sprintf(BroadcastReport, res.Sent, res.Failed)); err != nil {
			s.log.Error("broadcast report failed", zap.Int64("admin_id", adminID), zap.Error(err))
		}
	}()

	return len(ids), nil
}

// Wait blocks until every started broadcast has reported.
func (s *BroadcastService) Wait() {
	s.wg.Wait()
}

// Shutdown waits for running broadcasts. When ctx expires first, the
// remaining sends are cancelled and counted as failed.
func (s *BroadcastService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.stop()
		<-done
		return ctx.Err()
	}
}
