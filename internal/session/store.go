package session

import (
	"sync"
	"time"

	"hrportal/internal/config"
	"hrportal/internal/errors"

	"github.com/google/uuid"
)

// Store keeps conversations in memory keyed by session id
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation

	idleTimeout   time.Duration
	sweepInterval time.Duration
	logger        *errors.Logger
	now           func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStore creates an empty store. Call Start to run the idle sweeper.
func NewStore(cfg *config.SessionConfig, logger *errors.Logger) *Store {
	return &Store{
		conversations: make(map[string]*Conversation),
		idleTimeout:   cfg.IdleTimeout,
		sweepInterval: cfg.SweepInterval,
		logger:        logger,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}
}

// NewID returns a fresh random session id
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like one NewID produced
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the conversation for id
func (s *Store) Get(id string) (*Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	return c, ok
}

// GetOrCreate returns the conversation for id, creating an idle one under a
// new id when id is unknown or malformed. created reports whether a new
// conversation was made.
func (s *Store) GetOrCreate(id string) (conv *Conversation, created bool) {
	if ValidID(id) {
		if c, ok := s.Get(id); ok {
			return c, false
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have created it meanwhile
	if c, ok := s.conversations[id]; ok {
		return c, false
	}

	c := NewConversation(NewID())
	c.now = s.now
	c.touch()
	s.conversations[c.id] = c
	return c, true
}

// Delete drops the conversation for id
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
}

// Len returns the number of live conversations
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Sweep removes conversations idle for longer than the idle timeout and
// returns how many were removed
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, c := range s.conversations {
		if c.idleSince(now) > s.idleTimeout {
			delete(s.conversations, id)
			removed++
		}
	}
	return removed
}

// Start runs the idle sweeper until Close
func (s *Store) Start() {
	if s.sweepInterval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 && s.logger != nil {
					s.logger.Debug("Expired idle sessions",
						"removed", n,
						"remaining", s.Len())
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Close stops the sweeper and waits for it to exit
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}
