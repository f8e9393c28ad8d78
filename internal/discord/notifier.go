// Package discord posts audit messages to a Discord channel webhook.
package discord

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"pokeguide-backend/internal/model"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorPromote = 0xF1C40F
	colorDemote  = 0x95A5A6
)

// AuditNotifier is safe to use as a nil pointer; it then does nothing.
type AuditNotifier struct {
	session *discordgo.Session
	id      string
	token   string
	log     *zap.Logger
}

// NewAuditNotifier returns nil when webhookURL is empty.
func NewAuditNotifier(webhookURL string, log *zap.Logger) (*AuditNotifier, error) {
	if webhookURL == "" {
		log.Info("discord audit webhook not configured, audit messages disabled")
		return nil, nil
	}

	id, token, err := ParseWebhookURL(webhookURL)
	if err != nil {
		return nil, err
	}

	// Webhook execution needs no bot token.
	s, err := discordgo.New("")
	if err != nil {
		return nil, err
	}
	s.Client.Timeout = 10 * time.Second

	return &AuditNotifier{session: s, id: id, token: token, log: log}, nil
}

// ParseWebhookURL extracts the id and token from
// https://discord.com/api/webhooks/{id}/{token}.
func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse webhook url: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("webhook url %q has no /webhooks/{id}/{token} path", u.Redacted())
}

func (n *AuditNotifier) RoleChanged(actor, target *model.User, from model.Role) {
	if n == nil {
		return
	}
	n.send(roleChangedEmbed(actor, target, from))
}

func roleChangedEmbed(actor, target *model.User, from model.Role) *discordgo.MessageEmbed {
	color := colorDemote
	if target.Role == model.RoleAdmin {
		color = colorPromote
	}
	return &discordgo.MessageEmbed{
		Title: "Role changed",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("%s (%s)", target.Name, target.ID), Inline: true},
			{Name: "Change", Value: fmt.Sprintf("%s → %s", from, target.Role), Inline: true},
			{Name: "By", Value: actor.Name, Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (n *AuditNotifier) send(embed *discordgo.MessageEmbed) {
	go func() {
		_, err := n.session.WebhookExecute(n.id, n.token, false, &discordgo.WebhookParams{
			Username: "pokeguide",
			Embeds:   []*discordgo.MessageEmbed{embed},
		})
		if err != nil {
			n.log.Warn("discord audit webhook failed", zap.Error(err))
		}
	}()
}
