package ride

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JustSeanC/camp-weather-bot/pkg/response"
)

// Handler serves the read-only HTTP ride board. Writes go through
// Discord; this surface exists so camp staff can inspect the board
// without opening the app.
type Handler struct {
	service *Service
}

// NewHandler creates a new ride board handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for ride board endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/archive", h.ListArchive)
	r.Get("/{id}", h.GetByID)

	return r
}

// List handles GET /rides
// @Summary      List active rides
// @Description  Every ride currently open or full on the board
// @Tags         rides
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]RideResponse}
// @Router       /rides [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rides := h.service.ListActive()

	resp := make([]*RideResponse, 0, len(rides))
	for _, ride := range rides {
		resp = append(resp, ride.ToResponse(ride.DerivedStatus()))
	}
	response.JSON(w, http.StatusOK, resp)
}

// ListArchive handles GET /rides/archive
// @Summary      List expired rides
// @Description  Rides swept off the board but still reopenable
// @Tags         rides
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]RideResponse}
// @Router       /rides/archive [get]
func (h *Handler) ListArchive(w http.ResponseWriter, r *http.Request) {
	rides := h.service.ListArchived()

	resp := make([]*RideResponse, 0, len(rides))
	for _, ride := range rides {
		resp = append(resp, ride.ToResponse(StatusExpired))
	}
	response.JSON(w, http.StatusOK, resp)
}

// GetByID handles GET /rides/{id}
// @Summary      Get a ride
// @Description  Look a ride up by announcement message ID or short ride ID
// @Tags         rides
// @Produce      json
// @Param        id path string true "Message ID or ride ID"
// @Success      200 {object} response.APIResponse{data=RideResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /rides/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ride, status, err := h.service.Find(id)
	if err != nil {
		if errors.Is(err, ErrRideNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w, "Failed to look up ride")
		return
	}

	response.JSON(w, http.StatusOK, ride.ToResponse(status))
}
