package dispatcher

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

// the concrete dispatcher has to satisfy the interface the ticket
// manager and the antispam plugin consume
var _ Dispatcher = (*DiscordDispatcher)(nil)

func TestTicketChannelsAreTextChannels(t *testing.T) {
	if ticketChannelType != discordgo.ChannelTypeGuildText {
		t.Fatalf("ticket channels have to be guild text channels, got type %d", ticketChannelType)
	}
}

func TestTicketChannelPermissions(t *testing.T) {
	required := []int{
		discordgo.PermissionReadMessages,
		discordgo.PermissionSendMessages,
		discordgo.PermissionReadMessageHistory,
	}
	for _, permission := range required {
		if ticketChannelPermissions&permission != permission {
			t.Fatalf("ticket owner overwrite is missing permission bit %d", permission)
		}
	}
}
