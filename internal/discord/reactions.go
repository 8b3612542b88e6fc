package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/JustSeanC/camp-weather-bot/internal/ride"
)

// ReactionMatcher turns join reactions into Join calls on the ride
// engine. Bot reactions, other emoji and untracked messages are all
// filtered out before or inside the engine; a reaction carries no
// feedback channel, so failures are only logged.
type ReactionMatcher struct {
	service   *ride.Service
	joinEmoji string
	log       *logrus.Logger
}

// NewReactionMatcher creates a new reaction matcher.
func NewReactionMatcher(service *ride.Service, joinEmoji string, log *logrus.Logger) *ReactionMatcher {
	return &ReactionMatcher{service: service, joinEmoji: joinEmoji, log: log}
}

// Handle is the MessageReactionAdd gateway handler.
func (m *ReactionMatcher) Handle(s *discordgo.Session, ev *discordgo.MessageReactionAdd) {
	if s.State.User != nil && ev.UserID == s.State.User.ID {
		return
	}
	if ev.Member != nil && ev.Member.User != nil && ev.Member.User.Bot {
		return
	}
	if ev.Emoji.Name != m.joinEmoji {
		return
	}

	if err := m.service.Join(context.Background(), ev.MessageID, ev.UserID); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"message_id": ev.MessageID,
			"user_id":    ev.UserID,
		}).Warn("failed to join ride")
	}
}
