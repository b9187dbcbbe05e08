package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Purger removes expired entries from a store.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// Sweeper periodically purges expired challenges and clearances. Stores
// that expire by TTL can still be registered; their purge is a no-op.
type Sweeper struct {
	cron    *cron.Cron
	log     logrus.FieldLogger
	timeout time.Duration
	targets map[string]Purger
}

// NewSweeper builds a sweeper. spec is a cron spec such as "@every 1m".
func NewSweeper(spec string, log logrus.FieldLogger, targets map[string]Purger) (*Sweeper, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if spec == "" {
		spec = "@every 1m"
	}
	s := &Sweeper{
		cron:    cron.New(),
		log:     log,
		timeout: 30 * time.Second,
		targets: targets,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() { <-s.cron.Stop().Done() }

// RunOnce sweeps every target once.
func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	for name, p := range s.targets {
		n, err := p.PurgeExpired(ctx)
		if err != nil {
			s.log.WithError(err).WithField("store", name).Warn("purge failed")
			continue
		}
		if n > 0 {
			s.log.WithFields(logrus.Fields{"store": name, "purged": n}).Debug("purged expired entries")
		}
	}
}
