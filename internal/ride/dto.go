package ride

import "time"

// OfferRequest carries the parsed input of the offer command. Seat and
// expiry ranges (1-8 and 1-14) are enforced by the command layer's
// closed choice lists and are not re-validated here.
type OfferRequest struct {
	DriverID        string
	Destination     string
	DepartureDate   string
	DepartureTime   string
	MeetingLocation string
	Seats           int
	Notes           string
	ExpiresInDays   int
}

// CloseRequest identifies the ride to close and who is asking.
// Token may be either the announcement message ID or the short ride ID;
// when empty, the ride is resolved from the invoking thread.
type CloseRequest struct {
	Token    string
	ThreadID string
	UserID   string
}

// Rendered is the structured representation of a ride handed to the
// messaging surface. Surfaces render it however they like (the Discord
// adapter builds an embed from it); named fields replace the original
// board's splice-by-field-name message editing.
type Rendered struct {
	RideID          string
	DriverID        string
	Destination     string
	Departure       string
	MeetingLocation string
	Notes           string
	SeatsLeft       int
	TotalSeats      int
	ExpiresAt       time.Time
	Status          Status
}

// Render produces the surface representation of the ride in the given
// lifecycle state.
func (r *Ride) Render(status Status) Rendered {
	return Rendered{
		RideID:          r.RideID,
		DriverID:        r.DriverID,
		Destination:     r.Destination,
		Departure:       r.Departure,
		MeetingLocation: r.MeetingLocation,
		Notes:           r.Notes,
		SeatsLeft:       r.SeatsLeft(),
		TotalSeats:      r.TotalSeats,
		ExpiresAt:       time.UnixMilli(r.ExpiresAt),
		Status:          status,
	}
}

// RideResponse represents a ride on the HTTP board
type RideResponse struct {
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
	SeatsLeft       int      `json:"seats_left"`
	Riders          []string `json:"riders"`
	Status          Status   `json:"status"`
	ExpiresAt       string   `json:"expires_at"`
}

// ToResponse converts a Ride to its board representation
func (r *Ride) ToResponse(status Status) *RideResponse {
	return &RideResponse{
		RideID:          r.RideID,
		MessageID:       r.MessageID,
		ChannelID:       r.ChannelID,
		ThreadID:        r.ThreadID,
		DriverID:        r.DriverID,
		Destination:     r.Destination,
		Departure:       r.Departure,
		MeetingLocation: r.MeetingLocation,
		Notes:           r.Notes,
		TotalSeats:      r.TotalSeats,
		SeatsLeft:       r.SeatsLeft(),
		Riders:          r.Riders,
		Status:          status,
		ExpiresAt:       time.UnixMilli(r.ExpiresAt).UTC().Format("2006-01-02T15:04:05Z"),
	}
}
