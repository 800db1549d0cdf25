package player

// VoiceServer is the Player-side view of a chat-platform voice-server
// update, translated from the platform's raw packet by the voice package.
// Endpoint may be empty during a region migration.
type VoiceServer struct {
	Token    string
	GuildID  string
	Endpoint string
}

// VoiceState is the Player-side view of a chat-platform voice-state update
// for the bot's own user. ChannelID == "" means the bot left voice.
type VoiceState struct {
	GuildID   string
	UserID    string
	SessionID string
	ChannelID string
}

// VoiceJoinIntent is the payload carried by a VoiceUpdateEvent, translated
// by the Cluster (via the voice package) into the chat platform's gateway
// opcode 4 voice-join payload.
type VoiceJoinIntent struct {
	GuildID   string
	ChannelID string
	SelfMute  bool
	SelfDeaf  bool
}
