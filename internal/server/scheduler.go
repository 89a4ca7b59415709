package server

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	chronoseal "github.com/chronoseal/capsule-go"
)

// unlockSchedule fires at the start of each UTC day, the only instant a
// capsule can transition to unlockable.
const unlockSchedule = "0 0 * * *"

// configTarget keys the statically configured webhook in the announced set.
// Registered webhooks use their IDs, which never collide with this.
const configTarget = "config"

// unlockScanner announces capsules that became unlockable. It scans once at
// startup and then at every UTC midnight. Each notification target tracks
// its own announcements: a capsule is announced once per target per process
// unless delivery failed, in which case the next scan retries that target.
type unlockScanner struct {
	vault    *chronoseal.Vault
	notifier *notifier
	registry *webhookRegistry
	broker   *broker
	logger   *logrus.Logger
	cron     *cron.Cron

	mu        sync.Mutex
	announced map[string]map[int]struct{}
	streamed  map[int]struct{}
}

func newUnlockScanner(vault *chronoseal.Vault, notifier *notifier, registry *webhookRegistry, broker *broker, logger *logrus.Logger) *unlockScanner {
	return &unlockScanner{
		vault:     vault,
		notifier:  notifier,
		registry:  registry,
		broker:    broker,
		logger:    logger,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		announced: make(map[string]map[int]struct{}),
		streamed:  make(map[int]struct{}),
	}
}

func (s *unlockScanner) start() {
	if _, err := s.cron.AddFunc(unlockSchedule, func() {
		s.scan(context.Background())
	}); err != nil {
		s.logger.WithError(err).Error("unlock scan schedule rejected")
		return
	}
	s.cron.Start()

	// Capsules whose dates passed while the server was down are announced
	// right away rather than at the next midnight.
	go s.scan(context.Background())
}

func (s *unlockScanner) stop() {
	<-s.cron.Stop().Done()
}

func (s *unlockScanner) seen(target string, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.announced[target][index]
	return ok
}

func (s *unlockScanner) mark(target string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.announced[target]
	if !ok {
		set = make(map[int]struct{})
		s.announced[target] = set
	}
	set[index] = struct{}{}
}

func (s *unlockScanner) scan(ctx context.Context) {
	summaries, err := s.vault.ListCapsules()
	if err != nil {
		s.logger.WithError(err).Warn("unlock scan failed")
		return
	}

	targets := s.registry.targets()
	for _, capsule := range summaries {
		if capsule.Status != chronoseal.StatusUnlockable {
			continue
		}

		ev := chronoseal.UnlockEvent{
			Index:      capsule.Index,
			CreatedAt:  capsule.CreatedAt,
			UnlockDate: capsule.UnlockDate,
		}

		s.mu.Lock()
		_, streamed := s.streamed[ev.Index]
		if !streamed {
			s.streamed[ev.Index] = struct{}{}
		}
		s.mu.Unlock()
		if !streamed {
			s.logger.WithFields(logrus.Fields{
				"index":       ev.Index,
				"unlock_date": ev.UnlockDate,
			}).Info("capsule is unlockable")
			s.broker.publish(newUnlockNotification(ev))
		}

		if s.notifier.enabled() && !s.seen(configTarget, ev.Index) {
			if err := s.notifier.notify(ctx, ev); err != nil {
				s.logger.WithError(err).WithField("index", ev.Index).Warn("unlock notification failed")
			} else {
				s.mark(configTarget, ev.Index)
			}
		}

		for _, w := range targets {
			if s.seen(w.ID, ev.Index) {
				continue
			}
			err := s.notifier.announce(ctx, w.URL, w.Secret, ev)
			s.registry.recordDelivery(w.ID, err == nil)
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"index":      ev.Index,
					"webhook_id": w.ID,
				}).Warn("unlock notification failed")
				continue
			}
			s.mark(w.ID, ev.Index)
		}
	}
}
