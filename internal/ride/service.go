package ride

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Common errors
var (
	ErrInvalidTime   = errors.New("unrecognized departure time, expected something like 2:30 PM")
	ErrRideNotFound  = errors.New("ride not found")
	ErrNotAuthorized = errors.New("not authorized to manage this ride")
	ErrMessageGone   = errors.New("announcement message no longer exists")
)

// timePattern accepts clock times such as "2:30 PM", "11 am" or "7PM".
var timePattern = regexp.MustCompile(`(?i)\d{1,2}(:\d{2})?\s?(AM|PM)`)

// reopenGrace is how much runway a reopened ride gets when its original
// expiry has already passed; without it the next sweep would expire the
// ride again immediately.
const reopenGrace = 24 * time.Hour

// Surface is the messaging side of the ride board: posting and editing
// announcements, managing the join reaction, and running the per-ride
// discussion thread. The Discord adapter implements it.
type Surface interface {
	// PostAnnouncement publishes the offer and attaches the join
	// affordance, returning the new message's ID.
	PostAnnouncement(ctx context.Context, channelID string, r Rendered) (string, error)
	UpdateAnnouncement(ctx context.Context, channelID, messageID string, r Rendered) error
	AddJoinAffordance(ctx context.Context, channelID, messageID string) error
	ClearReactions(ctx context.Context, channelID, messageID string) error
	CreateThread(ctx context.Context, channelID, messageID, title string) (string, error)
	AddThreadMember(ctx context.Context, threadID, userID string) error
	PostThreadMessage(ctx context.Context, threadID, content string) error
}

// RoleChecker answers whether a user holds a guild role. Used for the
// overview-role bypass on close.
type RoleChecker interface {
	HasRole(ctx context.Context, userID, roleID string) (bool, error)
}

// Service is the ride lifecycle engine: the only writer of ride records.
// It enforces the seat invariants and drives every transition between
// open, full, closed and expired.
type Service struct {
	store          *Store
	surface        Surface
	roles          RoleChecker
	locks          *rideLocks
	log            *logrus.Logger
	channelID      string
	overviewRoleID string
	now            func() time.Time
}

// NewService creates a new ride service posting to channelID.
func NewService(store *Store, surface Surface, roles RoleChecker, channelID, overviewRoleID string, log *logrus.Logger) *Service {
	return &Service{
		store:          store,
		surface:        surface,
		roles:          roles,
		locks:          newRideLocks(),
		log:            log,
		channelID:      channelID,
		overviewRoleID: overviewRoleID,
		now:            time.Now,
	}
}

// Offer posts a new ride announcement and starts tracking it. The store
// write happens only after the announcement post succeeds, since the
// message ID it assigns is the record's key.
func (s *Service) Offer(ctx context.Context, req *OfferRequest) (*Ride, error) {
	if !timePattern.MatchString(req.DepartureTime) {
		return nil, ErrInvalidTime
	}

	notes := req.Notes
	if notes == "" {
		notes = "None"
	}

	now := s.now()
	ride := &Ride{
		RideID:          uuid.NewString()[:6],
		ChannelID:       s.channelID,
		DriverID:        req.DriverID,
		Destination:     req.Destination,
		Departure:       req.DepartureDate + " at " + req.DepartureTime,
		MeetingLocation: req.MeetingLocation,
		Notes:           notes,
		TotalSeats:      req.Seats,
		Riders:          []string{},
		ExpiresAt:       now.Add(time.Duration(req.ExpiresInDays) * 24 * time.Hour).UnixMilli(),
	}

	messageID, err := s.surface.PostAnnouncement(ctx, s.channelID, ride.Render(StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("failed to post ride announcement: %w", err)
	}
	ride.MessageID = messageID
	s.store.Put(ctx, ride)

	s.rideLog(ride).WithField("driver_id", ride.DriverID).Info("ride posted")
	return ride, nil
}

// Join claims a seat for userID on the ride announced by messageID.
// Reactions on untracked messages, the driver reacting to their own
// post, duplicate joins and joins on a full ride are all silently
// ignored; the reaction surface has no feedback channel to report to.
//
// The whole sequence runs under the ride's lock so that the capacity
// check and the persisted append cannot interleave with another join.
func (s *Service) Join(ctx context.Context, messageID, userID string) error {
	unlock := s.locks.acquire(messageID)
	defer unlock()

	ride := s.store.Get(messageID)
	if ride == nil {
		return nil
	}
	if userID == ride.DriverID {
		// The driver does not occupy a seat on their own ride.
		return nil
	}
	if ride.IsFull() || ride.HasRider(userID) {
		return nil
	}

	if ride.ThreadID == "" {
		threadID, err := s.surface.CreateThread(ctx, ride.ChannelID, ride.MessageID, "Ride Match: "+ride.Destination)
		if err != nil {
			return fmt.Errorf("failed to create ride thread: %w", err)
		}
		ride.ThreadID = threadID
		if err := s.surface.AddThreadMember(ctx, threadID, ride.DriverID); err != nil {
			s.rideLog(ride).WithError(err).Warn("failed to add driver to ride thread")
		}
	}

	ride.Riders = append(ride.Riders, userID)
	s.store.Put(ctx, ride)

	if err := s.surface.AddThreadMember(ctx, ride.ThreadID, userID); err != nil {
		s.rideLog(ride).WithError(err).Warn("failed to add rider to ride thread")
	}
	intro := fmt.Sprintf("👋 <@%s> and <@%s>, you've been connected for a ride to **%s**, departing **%s**.",
		ride.DriverID, userID, ride.Destination, ride.Departure)
	if err := s.surface.PostThreadMessage(ctx, ride.ThreadID, intro); err != nil {
		s.rideLog(ride).WithError(err).Warn("failed to post thread intro")
	}

	if err := s.surface.UpdateAnnouncement(ctx, ride.ChannelID, ride.MessageID, ride.Render(ride.DerivedStatus())); err != nil {
		s.rideLog(ride).WithError(err).Warn("failed to update announcement after join")
	}

	s.rideLog(ride).WithFields(logrus.Fields{
		"user_id":    userID,
		"seats_left": ride.SeatsLeft(),
	}).Info("rider joined")
	return nil
}

// Close takes a ride off the board early. Only the driver or a holder of
// the overview role may close. Closed rides are discarded, not archived:
// an explicit close is the driver retracting the offer, while expiry
// preserves the record so the driver can reopen it.
//
// The announcement is updated before the record is removed, so a surface
// failure leaves the ride tracked and the command safe to retry.
func (s *Service) Close(ctx context.Context, req *CloseRequest) (*Ride, error) {
	ride := s.resolveActive(req.Token, req.ThreadID)
	if ride == nil {
		return nil, ErrRideNotFound
	}

	unlock := s.locks.acquire(ride.MessageID)
	defer unlock()
	// Re-fetch under the lock; the snapshot resolved above may be stale.
	ride = s.store.Get(ride.MessageID)
	if ride == nil {
		return nil, ErrRideNotFound
	}

	if req.UserID != ride.DriverID {
		ok, err := s.roles.HasRole(ctx, req.UserID, s.overviewRoleID)
		if err != nil {
			return nil, fmt.Errorf("failed to check overview role: %w", err)
		}
		if !ok {
			return nil, ErrNotAuthorized
		}
	}

	if err := s.surface.UpdateAnnouncement(ctx, ride.ChannelID, ride.MessageID, ride.Render(StatusClosedEarly)); err != nil {
		return nil, fmt.Errorf("failed to mark ride closed: %w", err)
	}
	if err := s.surface.ClearReactions(ctx, ride.ChannelID, ride.MessageID); err != nil {
		return nil, fmt.Errorf("failed to clear reactions: %w", err)
	}

	s.store.Remove(ctx, ride.MessageID)
	s.locks.forget(ride.MessageID)

	s.rideLog(ride).WithField("user_id", req.UserID).Info("ride closed early")
	return ride, nil
}

// Reopen restores the ride whose discussion thread is threadID to the
// active board. It looks among active rides first, then in the archive.
// Only the original driver may reopen. An expiry already in the past is
// pushed out by reopenGrace.
func (s *Service) Reopen(ctx context.Context, threadID, userID string) (*Ride, error) {
	ride := s.store.FindByThread(threadID)
	if ride == nil {
		ride = s.store.FindArchivedByThread(threadID)
	}
	if ride == nil {
		return nil, ErrRideNotFound
	}
	if ride.DriverID != userID {
		return nil, ErrNotAuthorized
	}

	unlock := s.locks.acquire(ride.MessageID)
	defer unlock()

	// Re-resolve under the lock; the ride may have been expired or
	// closed since the thread lookup.
	archived := false
	if fresh := s.store.Get(ride.MessageID); fresh != nil {
		ride = fresh
	} else if fresh := s.store.GetArchived(ride.MessageID); fresh != nil {
		ride = fresh
		archived = true
	} else {
		return nil, ErrRideNotFound
	}

	if archived {
		ride = s.store.Unarchive(ctx, ride.MessageID)
		s.rideLog(ride).Info("restoring expired ride")
	}

	now := s.now()
	if ride.ExpiresAt <= now.UnixMilli() {
		ride.ExpiresAt = now.Add(reopenGrace).UnixMilli()
		s.store.Put(ctx, ride)
	}

	if err := s.surface.UpdateAnnouncement(ctx, ride.ChannelID, ride.MessageID, ride.Render(ride.DerivedStatus())); err != nil {
		return nil, fmt.Errorf("failed to restore announcement: %w", err)
	}
	if err := s.surface.AddJoinAffordance(ctx, ride.ChannelID, ride.MessageID); err != nil {
		return nil, fmt.Errorf("failed to re-add join reaction: %w", err)
	}

	s.rideLog(ride).Info("ride reopened")
	return ride, nil
}

// ExpireDue sweeps the active board and expires every ride whose
// expiry has passed. One ride's failure never blocks the rest of the
// sweep. Returns how many rides were taken off the board.
func (s *Service) ExpireDue(ctx context.Context) int {
	now := s.now()
	expired := 0
	for _, ride := range s.store.ListAll() {
		if !ride.ExpiredBy(now) {
			continue
		}
		s.expireOne(ctx, ride)
		expired++
	}
	return expired
}

func (s *Service) expireOne(ctx context.Context, ride *Ride) {
	unlock := s.locks.acquire(ride.MessageID)
	defer unlock()
	// Re-fetch under the lock so late joins make it into the archive.
	ride = s.store.Get(ride.MessageID)
	if ride == nil {
		// Closed while the sweep was running.
		return
	}

	if err := s.surface.UpdateAnnouncement(ctx, ride.ChannelID, ride.MessageID, ride.Render(StatusExpired)); err != nil {
		if errors.Is(err, ErrMessageGone) {
			s.rideLog(ride).Warn("announcement already deleted, dropping ride")
		} else {
			s.rideLog(ride).WithError(err).Warn("failed to mark ride expired, dropping ride")
		}
		s.store.Remove(ctx, ride.MessageID)
		s.locks.forget(ride.MessageID)
		return
	}
	if err := s.surface.ClearReactions(ctx, ride.ChannelID, ride.MessageID); err != nil {
		s.rideLog(ride).WithError(err).Warn("failed to clear reactions on expired ride")
	}

	s.store.Archive(ctx, ride)
	s.locks.forget(ride.MessageID)
	s.rideLog(ride).Info("ride expired")
}

// ListActive returns every ride currently on the board.
func (s *Service) ListActive() []*Ride {
	return s.store.ListAll()
}

// ListArchived returns every expired ride held for reopening.
func (s *Service) ListArchived() []*Ride {
	return s.store.ListArchived()
}

// Find resolves a message ID or short ride ID to a ride and its current
// status, searching the active board first and then the archive.
func (s *Service) Find(token string) (*Ride, Status, error) {
	if ride := s.store.Get(token); ride != nil {
		return ride, ride.DerivedStatus(), nil
	}
	if ride := s.store.FindByRideID(token); ride != nil {
		return ride, ride.DerivedStatus(), nil
	}
	if ride := s.store.GetArchived(token); ride != nil {
		return ride, StatusExpired, nil
	}
	return nil, "", ErrRideNotFound
}

// resolveActive finds the ride a close command refers to: by message ID,
// then by short ride ID, then by the thread it was invoked from.
func (s *Service) resolveActive(token, threadID string) *Ride {
	if token != "" {
		if ride := s.store.Get(token); ride != nil {
			return ride
		}
		if ride := s.store.FindByRideID(token); ride != nil {
			return ride
		}
	}
	if threadID != "" {
		return s.store.FindByThread(threadID)
	}
	return nil
}

func (s *Service) rideLog(r *Ride) *logrus.Entry {
	return s.log.WithFields(logrus.Fields{
		"ride_id":    r.RideID,
		"message_id": r.MessageID,
	})
}
