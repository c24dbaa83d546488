package bot

import "context"

// CommandSpec describes a remote slash command to register with the
// chat platform. All options are string-typed.
type CommandSpec struct {
	Name        string
	Description string
	Options     []CommandOption
}

// CommandOption is one typed argument of a remote command.
type CommandOption struct {
	Name        string
	Description string
	Required    bool
}

// Invocation is one inbound command dispatch from the platform.
type Invocation struct {
	Command   string
	InvokerID string
	Args      map[string]string

	// Respond delivers the reply for this invocation. Set by the
	// gateway adapter; tests substitute their own.
	Respond func(reply Reply) error
}

// Reply is the outcome of handling an invocation.
type Reply struct {
	Content   string
	Embed     *Embed
	Ephemeral bool
}

// Embed is a platform-agnostic rich message.
type Embed struct {
	Title        string
	Description  string
	Color        int
	ThumbnailURL string
	FooterText   string
}

// RemoteUser is the platform-side profile of an account.
type RemoteUser struct {
	ID        string
	Username  string
	AvatarURL string
}

// Gateway abstracts one live connection to the chat platform so the
// session controller never touches the socket directly.
type Gateway interface {
	// Open performs the remote handshake. The command handler must be
	// installed before Open so no inbound dispatch is dropped.
	Open() error
	Close() error

	// OverwriteCommands replaces the platform-side command registration.
	OverwriteCommands(applicationID string, specs []CommandSpec) error

	// OnCommand installs the inbound dispatch callback.
	OnCommand(handler func(inv Invocation))

	SendText(ctx context.Context, channelID, text string) error
	SendEmbed(ctx context.Context, channelID string, embed Embed) error
	SendDM(ctx context.Context, accountID, text string) error
	User(ctx context.Context, accountID string) (*RemoteUser, error)
}

// DialFunc constructs an unopened Gateway for the given bot token.
type DialFunc func(token string) (Gateway, error)
