// Package sweeper evicts idle sessions on a cron schedule so long-running
// daemons don't accumulate abandoned conversations and their transcripts.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/trymeuj/aiva/internal/orchestrator"
	"github.com/trymeuj/aiva/internal/state"
)

type Sweeper struct {
	cron     *cron.Cron
	sessions *orchestrator.Manager
	history  state.HistoryStore
	ttl      time.Duration
}

// New builds a sweeper that runs sweep() on the given cron schedule. An
// invalid schedule is an error at construction time, not at runtime.
func New(schedule string, sessions *orchestrator.Manager, history state.HistoryStore, ttl time.Duration) (*Sweeper, error) {
	s := &Sweeper{
		cron:     cron.New(),
		sessions: sessions,
		history:  history,
		ttl:      ttl,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx := context.Background()
	evicted := s.sessions.Evict(s.ttl)
	for _, id := range evicted {
		if err := s.history.Delete(ctx, id); err != nil {
			log.Printf("sweeper: deleting history for %s: %v", id, err)
		}
	}
	if len(evicted) > 0 {
		log.Printf("sweeper: evicted %d idle session(s)", len(evicted))
	}
}
