// Package voice adapts between discordgo's raw gateway packets/opcodes and
// Rias's internal voice-handshake records (player.VoiceServer,
// player.VoiceState, rias.VoicePacket).
package voice

import (
	"context"

	"github.com/MrWong99/rias"
	"github.com/MrWong99/rias/player"
	"github.com/bwmarrin/discordgo"
)

// FromVoiceServerUpdate converts a raw discordgo voice-server packet into
// Rias's internal VoiceServer record. Endpoint may be empty during a region
// migration; callers should forward it unmodified to
// Player.HandleVoiceServerUpdate rather than filtering it out here.
func FromVoiceServerUpdate(vsu *discordgo.VoiceServerUpdate) player.VoiceServer {
	return player.VoiceServer{
		Token:    vsu.Token,
		GuildID:  vsu.GuildID,
		Endpoint: vsu.Endpoint,
	}
}

// FromVoiceStateUpdate converts a raw discordgo voice-state packet into
// Rias's internal VoiceState record.
func FromVoiceStateUpdate(vsu *discordgo.VoiceStateUpdate) player.VoiceState {
	return player.VoiceState{
		GuildID:   vsu.GuildID,
		UserID:    vsu.UserID,
		SessionID: vsu.SessionID,
		ChannelID: vsu.ChannelID,
	}
}

// NewSend returns a rias.SendFunc backed by session, using
// ChannelVoiceJoinManual to deliver the gateway opcode 4 payload without
// discordgo establishing its own voice UDP connection — voice audio is
// rendered on the Lavalink node, not by discordgo.
func NewSend(session *discordgo.Session) rias.SendFunc {
	return func(guildID string, packet rias.VoicePacket) error {
		channelID := ""
		if packet.ChannelID != nil {
			channelID = *packet.ChannelID
		}
		return session.ChannelVoiceJoinManual(guildID, channelID, packet.SelfMute, packet.SelfDeaf)
	}
}

// RegisterHandlers subscribes session to voice-server and voice-state
// packets and forwards them into cluster, skipping voice-state packets that
// do not belong to the bot's own user (selfID). It returns a function that
// removes both handlers.
func RegisterHandlers(session *discordgo.Session, cluster *rias.Cluster, selfID string) func() {
	removeServer := session.AddHandler(func(_ *discordgo.Session, vsu *discordgo.VoiceServerUpdate) {
		cluster.DispatchVoiceServerUpdate(context.Background(), FromVoiceServerUpdate(vsu))
	})
	removeState := session.AddHandler(func(_ *discordgo.Session, vsu *discordgo.VoiceStateUpdate) {
		if vsu.UserID != selfID {
			return
		}
		cluster.DispatchVoiceStateUpdate(context.Background(), FromVoiceStateUpdate(vsu))
	})
	return func() {
		removeServer()
		removeState()
	}
}
