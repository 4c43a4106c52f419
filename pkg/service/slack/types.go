package slack

import (
	"github.com/secmon-lab/clacks/pkg/domain/interfaces"
	"github.com/slack-go/slack"
)

func toSlackUser(u slack.User) *interfaces.SlackUser {
	return &interfaces.SlackUser{
		ID:       u.ID,
		Name:     u.Name,
		RealName: u.RealName,
		Email:    u.Profile.Email,
		Deleted:  u.Deleted,
		IsBot:    u.IsBot,
	}
}

func toSlackChannel(ch slack.Channel) *interfaces.SlackChannel {
	return &interfaces.SlackChannel{
		ID:        ch.ID,
		Name:      ch.Name,
		IsPrivate: ch.IsPrivate,
	}
}
