package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/JustSeanC/camp-weather-bot/internal/ride"
)

const (
	colorGreen = 0x57F287
	colorRed   = 0xED4245

	// Discord's maximum thread auto-archive window, 7 days in minutes.
	threadAutoArchiveMinutes = 10080
)

// Surface adapts the ride engine's messaging contract onto Discord:
// announcements are embeds in the ride channel, the join affordance is
// a reaction, and discussion happens in a private thread hanging off
// the announcement.
type Surface struct {
	session   *discordgo.Session
	guildID   string
	joinEmoji string
}

// NewSurface creates a Discord surface for the given guild.
func NewSurface(session *discordgo.Session, guildID, joinEmoji string) *Surface {
	return &Surface{session: session, guildID: guildID, joinEmoji: joinEmoji}
}

// PostAnnouncement publishes the offer embed and attaches the join
// reaction. Returns the new message's ID.
func (s *Surface) PostAnnouncement(ctx context.Context, channelID string, r ride.Rendered) (string, error) {
	msg, err := s.session.ChannelMessageSendEmbed(channelID, s.buildEmbed(r))
	if err != nil {
		return "", mapError(err)
	}
	if err := s.session.MessageReactionAdd(channelID, msg.ID, s.joinEmoji); err != nil {
		return "", fmt.Errorf("announcement posted but join reaction failed: %w", err)
	}
	return msg.ID, nil
}

// UpdateAnnouncement re-renders the announcement embed in place.
func (s *Surface) UpdateAnnouncement(ctx context.Context, channelID, messageID string, r ride.Rendered) error {
	_, err := s.session.ChannelMessageEditEmbed(channelID, messageID, s.buildEmbed(r))
	return mapError(err)
}

// AddJoinAffordance re-adds the join reaction, used on reopen.
func (s *Surface) AddJoinAffordance(ctx context.Context, channelID, messageID string) error {
	return mapError(s.session.MessageReactionAdd(channelID, messageID, s.joinEmoji))
}

// ClearReactions strips every reaction from the announcement.
func (s *Surface) ClearReactions(ctx context.Context, channelID, messageID string) error {
	return mapError(s.session.MessageReactionsRemoveAll(channelID, messageID))
}

// CreateThread starts the private discussion thread off the
// announcement message.
func (s *Surface) CreateThread(ctx context.Context, channelID, messageID, title string) (string, error) {
	thread, err := s.session.MessageThreadStartComplex(channelID, messageID, &discordgo.ThreadStart{
		Name:                title,
		AutoArchiveDuration: threadAutoArchiveMinutes,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		Invitable:           false,
	})
	if err != nil {
		return "", mapError(err)
	}
	return thread.ID, nil
}

// AddThreadMember pulls a user into the ride thread.
func (s *Surface) AddThreadMember(ctx context.Context, threadID, userID string) error {
	return mapError(s.session.ThreadMemberAdd(threadID, userID))
}

// PostThreadMessage sends a plain message into the ride thread.
func (s *Surface) PostThreadMessage(ctx context.Context, threadID, content string) error {
	_, err := s.session.ChannelMessageSend(threadID, content)
	return mapError(err)
}

// HasRole reports whether the guild member holds the given role.
func (s *Surface) HasRole(ctx context.Context, userID, roleID string) (bool, error) {
	if roleID == "" {
		return false, nil
	}
	member, err := s.session.GuildMember(s.guildID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch guild member: %w", err)
	}
	for _, r := range member.Roles {
		if r == roleID {
			return true, nil
		}
	}
	return false, nil
}

// buildEmbed renders a ride as the announcement embed. Open rides carry
// the join instructions; every other status replaces them with a status
// field, matching the board's original look.
func (s *Surface) buildEmbed(r ride.Rendered) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "🚗 Ride Offer",
		Color: colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Destination", Value: r.Destination, Inline: true},
			{Name: "Departure Time", Value: r.Departure, Inline: true},
			{Name: "Meeting Location", Value: r.MeetingLocation, Inline: true},
			{Name: "Seats Available", Value: fmt.Sprintf("%d", r.SeatsLeft), Inline: true},
			{Name: "Notes", Value: r.Notes},
			{Name: "Posted by", Value: fmt.Sprintf("<@%s>", r.DriverID)},
			{Name: "⏳ Expires", Value: fmt.Sprintf("<t:%d:F>", r.ExpiresAt.Unix())},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Ride ID: " + r.RideID},
		Timestamp: r.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	}

	switch r.Status {
	case ride.StatusOpen:
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Join This Ride",
			Value: fmt.Sprintf("React with %s to join this ride.", s.joinEmoji),
		})
	case ride.StatusFull:
		embed.Color = colorRed
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Status", Value: "🔒 Ride Full"})
	case ride.StatusClosedEarly:
		embed.Color = colorRed
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Status", Value: "🔒 Closed Early"})
	case ride.StatusExpired:
		embed.Color = colorRed
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Status", Value: "⏳ Expired"})
	}

	return embed
}

// mapError translates Discord's "unknown message" REST error into the
// engine's sentinel so the sweeper can treat out-of-band deletions as
// already-gone.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownMessage {
		return fmt.Errorf("%w: %v", ride.ErrMessageGone, err)
	}
	return err
}
