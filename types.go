package rias

// SelectionStrategy chooses among eligible nodes when a Player is created.
type SelectionStrategy int

const (
	// LoadBalanced picks the node minimizing cpu.lavalinkLoad*(1+players*0.1).
	LoadBalanced SelectionStrategy = iota
	// Regional filters to nodes whose region matches the request, falling
	// back to LoadBalanced over the full eligible set when none match.
	Regional
	// LeastPlayers picks the node with the fewest connected players.
	LeastPlayers
	// LeastLoad picks the node with the lowest cpu.lavalinkLoad.
	LeastLoad
	// Priority picks the node with the lowest Priority value.
	Priority
)

func (s SelectionStrategy) String() string {
	switch s {
	case LoadBalanced:
		return "load-balanced"
	case Regional:
		return "regional"
	case LeastPlayers:
		return "least-players"
	case LeastLoad:
		return "least-load"
	case Priority:
		return "priority"
	default:
		return "unknown"
	}
}

// ParseSelectionStrategy parses a config string into a SelectionStrategy.
func ParseSelectionStrategy(s string) (SelectionStrategy, bool) {
	switch s {
	case "", "load-balanced":
		return LoadBalanced, true
	case "regional":
		return Regional, true
	case "least-players":
		return LeastPlayers, true
	case "least-load":
		return LeastLoad, true
	case "priority":
		return Priority, true
	default:
		return 0, false
	}
}

// VoicePacket is the gateway opcode 4 payload a Cluster hands to the
// user-supplied Send callback when a Player requests a voice join/move/leave.
type VoicePacket struct {
	GuildID   string  `json:"guild_id"`
	ChannelID *string `json:"channel_id"`
	SelfMute  bool    `json:"self_mute"`
	SelfDeaf  bool    `json:"self_deaf"`
}

// SendFunc delivers a VoicePacket to the chat platform's gateway, ordinarily
// a thin wrapper around a discordgo.Session's raw-payload send.
type SendFunc func(guildID string, packet VoicePacket) error
