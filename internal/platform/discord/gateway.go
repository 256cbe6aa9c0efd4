package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Gateway owns the websocket session and feeds interactions to a handler.
type Gateway struct {
	session *discordgo.Session
	guildID string
	logger  *zap.Logger
	remove  func()
}

// NewSession creates a bot session with the intents the engine needs.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	return session, nil
}

// NewGateway wraps session. guildID scopes command registration; empty
// registers global commands.
func NewGateway(session *discordgo.Session, guildID string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{session: session, guildID: guildID, logger: logger}
}

// Start opens the session, registers commands and routes interactions to
// handler until Stop.
func (g *Gateway) Start(ctx context.Context, commands []platform.Command, handler InteractionHandler) error {
	g.remove = g.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		in, ok := ConvertInteraction(i)
		if !ok {
			return
		}
		handler(ctx, in, NewResponder(s, i.Interaction))
	})
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	appID := g.session.State.User.ID
	registered, err := g.session.ApplicationCommandBulkOverwrite(appID, g.guildID, ToApplicationCommands(commands), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("register commands: %w", mapError(err))
	}
	g.logger.Info("gateway connected",
		zap.String("user", g.session.State.User.Username),
		zap.Int("commands", len(registered)))
	return nil
}

// Stop detaches the handler and closes the session.
func (g *Gateway) Stop() error {
	if g.remove != nil {
		g.remove()
	}
	return g.session.Close()
}
