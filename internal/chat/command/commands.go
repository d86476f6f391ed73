// Package command provides the slash-command registry, parser and built-in
// command definitions for line-oriented chat clients.
package command

// Categories for organizing commands.
const (
	CategoryIdentity = "identity"
	CategoryRooms    = "rooms"
	CategorySystem   = "system"
)

// Handler identifiers mapping commands to chat events.
const (
	HandlerNick   = "nick"
	HandlerCreate = "create"
	HandlerJoin   = "join"
	HandlerLeave  = "leave"
	HandlerRooms  = "rooms"
	HandlerHelp   = "help"
	HandlerQuit   = "quit"
)

// Command defines a user-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage shows the argument syntax, e.g. "<name>".
	Usage string
	// Help is the short help text.
	Help string
	// Category groups the command for help output.
	Category string
	// Handler maps to the chat event the command raises.
	Handler string
}

// BuiltinCommands returns all built-in chat commands.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "nick", Aliases: []string{"name"}, Usage: "<name>", Help: "Change your display name", Category: CategoryIdentity, Handler: HandlerNick},

		{Name: "rooms", Aliases: []string{"list"}, Help: "List open rooms", Category: CategoryRooms, Handler: HandlerRooms},
		{Name: "create", Usage: "<title>", Help: "Create a room and enter it (you will be asked for an optional password)", Category: CategoryRooms, Handler: HandlerCreate},
		{Name: "join", Aliases: []string{"j"}, Usage: "<number|room-id>", Help: "Join a room from the last room list", Category: CategoryRooms, Handler: HandlerJoin},
		{Name: "leave", Aliases: []string{"part"}, Help: "Leave your current room", Category: CategoryRooms, Handler: HandlerLeave},

		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"exit"}, Help: "Disconnect", Category: CategorySystem, Handler: HandlerQuit},
	}
}
