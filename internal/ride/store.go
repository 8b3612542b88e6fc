package ride

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Persister is the durable backing medium for the two ride collections.
// The in-memory maps stay authoritative; persistence is synchronous but
// best-effort.
type Persister interface {
	LoadActive(ctx context.Context) ([]*Ride, error)
	LoadArchived(ctx context.Context) ([]*Ride, error)
	SaveActive(ctx context.Context, r *Ride) error
	DeleteActive(ctx context.Context, messageID string) error
	SaveArchived(ctx context.Context, r *Ride) error
	DeleteArchived(ctx context.Context, messageID string) error
}

// Store holds every tracked ride: the active board plus an archive of
// expired rides kept around so they can be reopened. Both collections
// are keyed by announcement message ID. Every mutation is written
// through to the Persister; a write failure is logged and the in-memory
// view stays authoritative for the rest of the process lifetime.
//
// The store keeps and returns only clones, so stored records are never
// mutated in place. Readers (the HTTP board runs on its own goroutines)
// get a consistent snapshot without taking the engine's per-ride lock;
// writers re-fetch under that lock and Put their modified copy back.
type Store struct {
	mu      sync.RWMutex
	active  map[string]*Ride
	archive map[string]*Ride
	db      Persister
	log     *logrus.Logger
}

// NewStore creates an empty store backed by db.
func NewStore(db Persister, log *logrus.Logger) *Store {
	return &Store{
		active:  make(map[string]*Ride),
		archive: make(map[string]*Ride),
		db:      db,
		log:     log,
	}
}

// Load fills both collections from the backing medium. Called once at
// startup, before any handler runs.
func (s *Store) Load(ctx context.Context) error {
	active, err := s.db.LoadActive(ctx)
	if err != nil {
		return err
	}
	archived, err := s.db.LoadArchived(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range active {
		s.active[r.MessageID] = r
	}
	for _, r := range archived {
		s.archive[r.MessageID] = r
	}
	s.log.WithFields(logrus.Fields{
		"active":   len(s.active),
		"archived": len(s.archive),
	}).Info("ride store loaded")
	return nil
}

// Put inserts or overwrites a ride on the active board.
func (s *Store) Put(ctx context.Context, r *Ride) {
	s.mu.Lock()
	s.active[r.MessageID] = r.Clone()
	s.mu.Unlock()

	if err := s.db.SaveActive(ctx, r); err != nil {
		s.warnPersist("save ride", r.MessageID, err)
	}
}

// Get looks a ride up on the active board. The archive is not searched.
func (s *Store) Get(messageID string) *Ride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.active[messageID]; ok {
		return r.Clone()
	}
	return nil
}

// Remove deletes a ride from the active board. Removing an absent ride
// is a no-op.
func (s *Store) Remove(ctx context.Context, messageID string) {
	s.mu.Lock()
	_, existed := s.active[messageID]
	delete(s.active, messageID)
	s.mu.Unlock()

	if !existed {
		return
	}
	if err := s.db.DeleteActive(ctx, messageID); err != nil {
		s.warnPersist("delete ride", messageID, err)
	}
}

// ListAll returns every ride on the active board, in no particular order.
func (s *Store) ListAll() []*Ride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rides := make([]*Ride, 0, len(s.active))
	for _, r := range s.active {
		rides = append(rides, r.Clone())
	}
	return rides
}

// ListArchived returns every expired ride held in the archive.
func (s *Store) ListArchived() []*Ride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rides := make([]*Ride, 0, len(s.archive))
	for _, r := range s.archive {
		rides = append(rides, r.Clone())
	}
	return rides
}

// Archive moves a ride from the active board into the archive.
func (s *Store) Archive(ctx context.Context, r *Ride) {
	s.mu.Lock()
	delete(s.active, r.MessageID)
	s.archive[r.MessageID] = r.Clone()
	s.mu.Unlock()

	if err := s.db.SaveArchived(ctx, r); err != nil {
		s.warnPersist("archive ride", r.MessageID, err)
	}
	if err := s.db.DeleteActive(ctx, r.MessageID); err != nil {
		s.warnPersist("delete ride", r.MessageID, err)
	}
}

// Unarchive moves a ride back onto the active board and returns it, or
// nil if the archive has no ride for messageID.
func (s *Store) Unarchive(ctx context.Context, messageID string) *Ride {
	s.mu.Lock()
	r, ok := s.archive[messageID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.archive, messageID)
	s.active[messageID] = r
	out := r.Clone()
	s.mu.Unlock()

	if err := s.db.SaveActive(ctx, out); err != nil {
		s.warnPersist("save ride", messageID, err)
	}
	if err := s.db.DeleteArchived(ctx, messageID); err != nil {
		s.warnPersist("delete archived ride", messageID, err)
	}
	return out
}

// GetArchived looks a ride up in the archive without moving it.
func (s *Store) GetArchived(messageID string) *Ride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.archive[messageID]; ok {
		return r.Clone()
	}
	return nil
}

// FindByThread returns the active ride whose discussion thread is
// threadID, or nil.
func (s *Store) FindByThread(threadID string) *Ride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.active {
		if r.ThreadID != "" && r.ThreadID == threadID {
			return r.Clone()
		}
	}
	return nil
}

// FindArchivedByThread returns the archived ride whose discussion
// thread is threadID, or nil.
func (s *Store) FindArchivedByThread(threadID string) *Ride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.archive {
		if r.ThreadID != "" && r.ThreadID == threadID {
			return r.Clone()
		}
	}
	return nil
}

// FindByRideID returns the active ride with the given short ride ID,
// or nil.
func (s *Store) FindByRideID(rideID string) *Ride {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.active {
		if r.RideID == rideID {
			return r.Clone()
		}
	}
	return nil
}

func (s *Store) warnPersist(op, messageID string, err error) {
	s.log.WithError(err).WithField("message_id", messageID).Warnf("failed to %s, in-memory state kept", op)
}
