package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/JustSeanC/camp-weather-bot/internal/ride"
)

// CommandHandler wires the /rides slash command onto the ride engine.
type CommandHandler struct {
	service *ride.Service
	log     *logrus.Logger
}

// NewCommandHandler creates a new slash command handler.
func NewCommandHandler(service *ride.Service, log *logrus.Logger) *CommandHandler {
	return &CommandHandler{service: service, log: log}
}

// Definition is the /rides application command. Seats and expiry use
// closed choice lists, so the engine never sees out-of-range values.
func (h *CommandHandler) Definition() *discordgo.ApplicationCommand {
	seatChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, 8)
	for i := 1; i <= 8; i++ {
		seatChoices = append(seatChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%d", i),
			Value: i,
		})
	}
	dayChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, 14)
	for i := 1; i <= 14; i++ {
		label := fmt.Sprintf("%d days", i)
		if i == 1 {
			label = "1 day"
		}
		dayChoices = append(dayChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  label,
			Value: i,
		})
	}

	return &discordgo.ApplicationCommand{
		Name:        "rides",
		Description: "Manage ride board",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "offer",
				Description: "Offer a ride to/from camp or town",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "to", Description: "Destination", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: "departure_date", Description: "Date (e.g., Sat 6/15)", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: "departure_time", Description: "Time (e.g., 2:30 PM)", Required: true},
					{Type: discordgo.ApplicationCommandOptionString, Name: "meeting_location", Description: "Meeting location", Required: true},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "seats", Description: "Seats available", Required: true, Choices: seatChoices},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "expires_in", Description: "Expires in", Required: true, Choices: dayChoices},
					{Type: discordgo.ApplicationCommandOptionString, Name: "notes", Description: "Optional notes", Required: false},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "close",
				Description: "Close a posted ride early",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionString, Name: "message_id", Description: "Message ID or Ride ID", Required: false},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "reopen",
				Description: "Re-open a closed or expired ride (run in ride thread)",
			},
		},
	}
}

// Register creates the /rides command in the guild.
func (h *CommandHandler) Register(s *discordgo.Session, guildID string) error {
	_, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, h.Definition())
	if err != nil {
		return fmt.Errorf("failed to register rides command: %w", err)
	}
	return nil
}

// Handle dispatches /rides interactions.
func (h *CommandHandler) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != "rides" || len(data.Options) == 0 {
		return
	}

	sub := data.Options[0]
	switch sub.Name {
	case "offer":
		h.handleOffer(s, i, sub)
	case "close":
		h.handleClose(s, i, sub)
	case "reopen":
		h.handleReopen(s, i)
	}
}

func (h *CommandHandler) handleOffer(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(sub.Options)

	req := &ride.OfferRequest{
		DriverID:        i.Member.User.ID,
		Destination:     stringOption(opts, "to"),
		DepartureDate:   stringOption(opts, "departure_date"),
		DepartureTime:   stringOption(opts, "departure_time"),
		MeetingLocation: stringOption(opts, "meeting_location"),
		Seats:           intOption(opts, "seats"),
		ExpiresInDays:   intOption(opts, "expires_in"),
		Notes:           stringOption(opts, "notes"),
	}

	if _, err := h.service.Offer(context.Background(), req); err != nil {
		if errors.Is(err, ride.ErrInvalidTime) {
			h.reply(s, i, "❌ Invalid time format. Try `2:30 PM`.")
			return
		}
		h.log.WithError(err).Error("failed to post ride")
		h.reply(s, i, "❌ Error posting ride.")
		return
	}
	h.reply(s, i, "✅ Ride posted!")
}

func (h *CommandHandler) handleClose(s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(sub.Options)

	req := &ride.CloseRequest{
		Token:    stringOption(opts, "message_id"),
		ThreadID: h.threadID(s, i.ChannelID),
		UserID:   i.Member.User.ID,
	}

	if _, err := h.service.Close(context.Background(), req); err != nil {
		switch {
		case errors.Is(err, ride.ErrRideNotFound):
			h.reply(s, i, "❌ Ride not found.")
		case errors.Is(err, ride.ErrNotAuthorized):
			h.reply(s, i, "❌ You do not have permission to close this ride.")
		default:
			h.log.WithError(err).Error("failed to close ride")
			h.reply(s, i, "❌ Could not close the ride.")
		}
		return
	}
	h.reply(s, i, "✅ Ride closed.")
}

func (h *CommandHandler) handleReopen(s *discordgo.Session, i *discordgo.InteractionCreate) {
	threadID := h.threadID(s, i.ChannelID)
	if threadID == "" {
		h.reply(s, i, "❌ Use this inside a ride thread.")
		return
	}

	if _, err := h.service.Reopen(context.Background(), threadID, i.Member.User.ID); err != nil {
		switch {
		case errors.Is(err, ride.ErrRideNotFound):
			h.reply(s, i, "❌ Ride not found in expired or active list.")
		case errors.Is(err, ride.ErrNotAuthorized):
			h.reply(s, i, "❌ Only the original driver can reopen this ride.")
		default:
			h.log.WithError(err).Error("failed to reopen ride")
			h.reply(s, i, "⚠️ Could not reopen the ride.")
		}
		return
	}
	h.reply(s, i, "✅ Ride re-opened!")
}

// threadID returns channelID when it refers to a thread, "" otherwise.
func (h *CommandHandler) threadID(s *discordgo.Session, channelID string) string {
	ch, err := s.State.Channel(channelID)
	if ch == nil || err != nil {
		ch, err = s.Channel(channelID)
		if err != nil {
			return ""
		}
	}
	if ch.IsThread() {
		return ch.ID
	}
	return ""
}

func (h *CommandHandler) reply(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.log.WithError(err).Warn("failed to respond to interaction")
	}
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func stringOption(m map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if o, ok := m[name]; ok {
		return o.StringValue()
	}
	return ""
}

func intOption(m map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	if o, ok := m[name]; ok {
		return int(o.IntValue())
	}
	return 0
}
