package ride

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// memPersister keeps rides in memory and can be told to fail, standing
// in for the Postgres repository.
type memPersister struct {
	mu       sync.Mutex
	active   map[string]*Ride
	archived map[string]*Ride
	failAll  bool
}

func newMemPersister() *memPersister {
	return &memPersister{
		active:   make(map[string]*Ride),
		archived: make(map[string]*Ride),
	}
}

var errPersist = errors.New("disk on fire")

func (p *memPersister) LoadActive(ctx context.Context) ([]*Ride, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var rides []*Ride
	for _, r := range p.active {
		rides = append(rides, r)
	}
	return rides, nil
}

func (p *memPersister) LoadArchived(ctx context.Context) ([]*Ride, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var rides []*Ride
	for _, r := range p.archived {
		rides = append(rides, r)
	}
	return rides, nil
}

func (p *memPersister) SaveActive(ctx context.Context, r *Ride) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return errPersist
	}
	p.active[r.MessageID] = r
	return nil
}

func (p *memPersister) DeleteActive(ctx context.Context, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return errPersist
	}
	delete(p.active, messageID)
	return nil
}

func (p *memPersister) SaveArchived(ctx context.Context, r *Ride) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return errPersist
	}
	p.archived[r.MessageID] = r
	return nil
}

func (p *memPersister) DeleteArchived(ctx context.Context, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return errPersist
	}
	delete(p.archived, messageID)
	return nil
}

// fakeSurface records every call the engine makes against the
// messaging contract.
type fakeSurface struct {
	mu            sync.Mutex
	nextMessageID int
	nextThreadID  int

	posted        map[string]Rendered // last render per message ID
	cleared       []string
	reAdded       []string
	threadMembers map[string][]string
	threadPosts   map[string][]string
	threadFor     map[string]string // message ID -> thread ID

	postErr    error
	updateErr  map[string]error // per message ID
	threadErr  error
	clearErr   error
	joinAffErr error
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		posted:        make(map[string]Rendered),
		threadMembers: make(map[string][]string),
		threadPosts:   make(map[string][]string),
		threadFor:     make(map[string]string),
		updateErr:     make(map[string]error),
	}
}

func (f *fakeSurface) PostAnnouncement(ctx context.Context, channelID string, r Rendered) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return "", f.postErr
	}
	f.nextMessageID++
	id := fmt.Sprintf("msg-%d", f.nextMessageID)
	f.posted[id] = r
	return id, nil
}

func (f *fakeSurface) UpdateAnnouncement(ctx context.Context, channelID, messageID string, r Rendered) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateErr[messageID]; err != nil {
		return err
	}
	f.posted[messageID] = r
	return nil
}

func (f *fakeSurface) AddJoinAffordance(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinAffErr != nil {
		return f.joinAffErr
	}
	f.reAdded = append(f.reAdded, messageID)
	return nil
}

func (f *fakeSurface) ClearReactions(ctx context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cleared = append(f.cleared, messageID)
	return nil
}

func (f *fakeSurface) CreateThread(ctx context.Context, channelID, messageID, title string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadErr != nil {
		return "", f.threadErr
	}
	f.nextThreadID++
	id := fmt.Sprintf("thread-%d", f.nextThreadID)
	f.threadFor[messageID] = id
	return id, nil
}

func (f *fakeSurface) AddThreadMember(ctx context.Context, threadID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadMembers[threadID] = append(f.threadMembers[threadID], userID)
	return nil
}

func (f *fakeSurface) PostThreadMessage(ctx context.Context, threadID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadPosts[threadID] = append(f.threadPosts[threadID], content)
	return nil
}

func (f *fakeSurface) lastRender(messageID string) (Rendered, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.posted[messageID]
	return r, ok
}

// fakeRoles grants the overview role to a fixed set of users.
type fakeRoles struct {
	holders map[string]bool
}

func (f *fakeRoles) HasRole(ctx context.Context, userID, roleID string) (bool, error) {
	return f.holders[userID], nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
