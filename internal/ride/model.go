package ride

import "time"

// Status is the derived lifecycle state of a ride. It is never stored:
// open/full follow from the rider count, closed/expired from which
// collection (if any) still holds the record.
type Status string

const (
	StatusOpen        Status = "open"
	StatusFull        Status = "full"
	StatusClosedEarly Status = "closed_early"
	StatusExpired     Status = "expired"
)

// Ride represents a single offer of transportation posted by one driver.
// The announcement message ID is the primary key for the lifetime of the
// ride. Everything except ThreadID, Riders and ExpiresAt is immutable
// after creation.
type Ride struct {
	RideID          string   `json:"ride_id"`
	MessageID       string   `json:"message_id"`
	ChannelID       string   `json:"channel_id"`
	ThreadID        string   `json:"thread_id,omitempty"`
	DriverID        string   `json:"driver_id"`
	Destination     string   `json:"destination"`
	Departure       string   `json:"departure"`
	MeetingLocation string   `json:"meeting_location"`
	Notes           string   `json:"notes"`
	TotalSeats      int      `json:"total_seats"`
	Riders          []string `json:"riders"`
	ExpiresAt       int64    `json:"expires_at"` // epoch milliseconds
}

// Clone returns a deep copy of the ride. The store hands out and keeps
// only clones, so a record is never mutated in place and readers never
// need to synchronize with the engine's writes.
func (r *Ride) Clone() *Ride {
	c := *r
	c.Riders = make([]string, len(r.Riders))
	copy(c.Riders, r.Riders)
	return &c
}

// SeatsLeft returns how many seats are still open.
func (r *Ride) SeatsLeft() int {
	return r.TotalSeats - len(r.Riders)
}

// IsFull reports whether every seat has been claimed.
func (r *Ride) IsFull() bool {
	return len(r.Riders) >= r.TotalSeats
}

// HasRider reports whether the user already claimed a seat.
func (r *Ride) HasRider(userID string) bool {
	for _, id := range r.Riders {
		if id == userID {
			return true
		}
	}
	return false
}

// ExpiredBy reports whether the ride's expiry has passed at t.
func (r *Ride) ExpiredBy(t time.Time) bool {
	return r.ExpiresAt < t.UnixMilli()
}

// DerivedStatus computes the status of a ride that is still on the
// active board.
func (r *Ride) DerivedStatus() Status {
	if r.IsFull() {
		return StatusFull
	}
	return StatusOpen
}
