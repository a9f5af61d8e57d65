package hub

// Event types prefixed to every frame sent to clients.
const (
	ServerModified byte = iota + 1
	ServerDeleted

	ChannelCreated

	MessageCreated
	MessageModified
	MessageDeleted

	TypingStarted
	TypingStopped
)
