package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"xandpulse/models"
)

const discordCommandPrefix = "!pulse"

// SubscriptionManager is the part of the alert engine the bot commands drive.
type SubscriptionManager interface {
	Subscribe(channel, pubkey string) error
	Unsubscribe(channel, pubkey string) (bool, error)
	Subscriptions(channel string) []string
}

type DiscordBotService struct {
	session *discordgo.Session
	botID   string
	enabled bool
	subs    SubscriptionManager
}

// NewDiscordBotService returns a disabled bot when token is empty.
func NewDiscordBotService(token string) (*DiscordBotService, error) {
	if token == "" {
		log.Println("Discord bot token not provided, Discord notifications disabled")
		return &DiscordBotService{enabled: false}, nil
	}

	// Create Discord session with Bot prefix
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	user, err := session.User("@me")
	if err != nil {
		return nil, fmt.Errorf("failed to get bot user: %w", err)
	}

	botService := &DiscordBotService{
		session: session,
		botID:   user.ID,
		enabled: true,
	}

	session.AddHandler(botService.messageHandler)

	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open Discord connection: %w", err)
	}

	log.Printf("Discord bot connected successfully! Bot ID: %s", user.ID)
	return botService, nil
}

// BindSubscriptions enables the subscribe/unsubscribe/list chat commands.
func (d *DiscordBotService) BindSubscriptions(subs SubscriptionManager) {
	d.subs = subs
}

func (d *DiscordBotService) Enabled() bool {
	return d != nil && d.enabled
}

func (d *DiscordBotService) Close() {
	if d.enabled && d.session != nil {
		log.Println("Closing Discord bot connection...")
		d.session.Close()
	}
}

func (d *DiscordBotService) messageHandler(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore messages from the bot itself
	if m.Author == nil || m.Author.ID == d.botID {
		return
	}

	reply, ok := d.handleCommand(m.ChannelID, m.Content)
	if !ok {
		return
	}
	if _, err := s.ChannelMessageSend(m.ChannelID, reply); err != nil {
		log.Printf("Discord reply to %s failed: %v", m.ChannelID, err)
	}
}

// handleCommand returns the reply for a bot command and whether content was one.
func (d *DiscordBotService) handleCommand(channelID, content string) (string, bool) {
	args := strings.Fields(content)
	if len(args) == 0 || args[0] != discordCommandPrefix {
		return "", false
	}
	if len(args) < 2 {
		return d.helpText(), true
	}
	if d.subs == nil && args[1] != "ping" && args[1] != "help" {
		return "Subscriptions are not available right now.", true
	}

	switch cmd := args[1]; cmd {
	case "ping":
		return "🏓 Pong! xandpulse is online.", true
	case "help":
		return d.helpText(), true
	case "subscribe":
		if len(args) < 3 {
			return "Usage: `!pulse subscribe <pubkey>`", true
		}
		if err := d.subs.Subscribe(channelID, args[2]); err != nil {
			return "Could not subscribe: " + err.Error(), true
		}
		return fmt.Sprintf("✅ This channel will be notified when `%s` changes status.", args[2]), true
	case "unsubscribe":
		if len(args) < 3 {
			return "Usage: `!pulse unsubscribe <pubkey>`", true
		}
		removed, err := d.subs.Unsubscribe(channelID, args[2])
		if err != nil {
			return "Could not unsubscribe: " + err.Error(), true
		}
		if !removed {
			return fmt.Sprintf("This channel was not watching `%s`.", args[2]), true
		}
		return fmt.Sprintf("🗑️ Stopped watching `%s`.", args[2]), true
	case "list":
		pubkeys := d.subs.Subscriptions(channelID)
		if len(pubkeys) == 0 {
			return "This channel has no subscriptions.", true
		}
		return "**Watched nodes:**\n`" + strings.Join(pubkeys, "`\n`") + "`", true
	default:
		return fmt.Sprintf("Unknown command: `%s`. Try `!pulse help`", cmd), true
	}
}

func (d *DiscordBotService) helpText() string {
	return "**xandpulse bot commands:**\n" +
		"`!pulse subscribe <pubkey>` - Notify this channel when the node goes online or offline\n" +
		"`!pulse unsubscribe <pubkey>` - Stop notifications for the node\n" +
		"`!pulse list` - Show the nodes this channel watches\n" +
		"`!pulse ping` - Check if the bot is online"
}

func (d *DiscordBotService) Name() string { return "discord" }

// Notify posts a transition embed to the Discord channel id.
func (d *DiscordBotService) Notify(ctx context.Context, channel string, ev models.TransitionEvent) error {
	if !d.Enabled() {
		return fmt.Errorf("Discord bot not enabled")
	}

	_, err := d.session.ChannelMessageSendEmbed(channel, transitionEmbed(ev), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}
	return nil
}

func transitionEmbed(ev models.TransitionEvent) *discordgo.MessageEmbed {
	title := "🟢 Node back online"
	color := 3066993 // Green
	if ev.Current == models.StatusOffline {
		title = "🔴 Node went offline"
		color = 15158332 // Red
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("`%s`", ev.Pubkey),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Network", Value: ev.Network, Inline: true},
			{Name: "Address", Value: ev.Address, Inline: true},
			{Name: "Status", Value: strings.ToUpper(ev.Previous) + " → " + strings.ToUpper(ev.Current), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "xandpulse",
		},
		Timestamp: ev.Timestamp.Format(time.RFC3339),
	}
}
