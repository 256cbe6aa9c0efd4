package platform

import "context"

type InteractionKind int

const (
	InteractionCommand InteractionKind = iota + 1
	InteractionComponent
)

// Interaction is a slash command or a control activation.
type Interaction struct {
	Kind      InteractionKind
	ID        string
	GuildID   string
	ChannelID string
	User      Member

	// CanManageServer is true when the invoker holds the manage-server right.
	CanManageServer bool

	// Component interactions.
	CustomID string
	Values   []string

	// Command interactions.
	Command    string
	Subcommand string
	Options    map[string]string
}

// Option returns a command option or "".
func (i *Interaction) Option(name string) string {
	if i.Options == nil {
		return ""
	}
	return i.Options[name]
}

// Responder answers an interaction. Defer must be called before slow work;
// Reply then sends a follow-up.
type Responder interface {
	Defer(ctx context.Context, ephemeral bool) error
	Reply(ctx context.Context, content string, ephemeral bool) error
}

// CommandOption describes one option of a registered subcommand.
type CommandOption struct {
	Name        string
	Description string
	Kind        OptionKind
	Required    bool
	Choices     []string
}

type OptionKind int

const (
	OptionString OptionKind = iota + 1
	OptionChannel
	OptionRole
	OptionBool
)

// Subcommand describes one subcommand of a registered command.
type Subcommand struct {
	Name        string
	Description string
	Options     []CommandOption
}

// Command describes a registered slash command.
type Command struct {
	Name        string
	Description string
	ManageOnly  bool
	Subcommands []Subcommand
}
