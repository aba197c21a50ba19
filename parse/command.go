package parse

import (
	"fmt"
	"strings"

	"github.com/targodan/UberSpatchBoard/errors"
)

// CommandKind enumerates the dispatch commands understood by the board.
type CommandKind int

const (
	// CommandSoftAssign adds rats to a case without marking them assigned.
	CommandSoftAssign CommandKind = iota
	// CommandHardAssign adds rats to a case and marks them assigned.
	CommandHardAssign
	// CommandUnassign removes one rat from a case.
	CommandUnassign
	// CommandToggleCodeRed flips the code red flag.
	CommandToggleCodeRed
	// CommandSetSystem replaces the star system of a case.
	CommandSetSystem
	// CommandToggleActive flips the active flag.
	CommandToggleActive
	// CommandClose closes a case, optionally recording the first limpet.
	CommandClose
	// CommandSetCmdrName sets the client's CMDR name.
	CommandSetCmdrName
	// CommandGrab quotes a client's last line into the case.
	CommandGrab
	// CommandMarkDeletion marks a case for deletion.
	CommandMarkDeletion
	// CommandInject appends a note to a case.
	CommandInject
	// CommandSetIRCNick sets the client's IRC nickname.
	CommandSetIRCNick
	// CommandSetPlatformPC sets the client's platform to PC.
	CommandSetPlatformPC
	// CommandSetPlatformPS sets the client's platform to PlayStation.
	CommandSetPlatformPS
	// CommandSetPlatformXB sets the client's platform to Xbox.
	CommandSetPlatformXB
	// CommandSubstitute swaps one rat for another.
	CommandSubstitute
)

// String returns a readable name for the command kind.
func (k CommandKind) String() string {
	switch k {
	case CommandSoftAssign:
		return "soft-assign"
	case CommandHardAssign:
		return "hard-assign"
	case CommandUnassign:
		return "unassign"
	case CommandToggleCodeRed:
		return "toggle-codered"
	case CommandSetSystem:
		return "set-system"
	case CommandToggleActive:
		return "toggle-active"
	case CommandClose:
		return "close"
	case CommandSetCmdrName:
		return "set-cmdr-name"
	case CommandGrab:
		return "grab"
	case CommandMarkDeletion:
		return "mark-deletion"
	case CommandInject:
		return "inject"
	case CommandSetIRCNick:
		return "set-ircnick"
	case CommandSetPlatformPC:
		return "set-platform-pc"
	case CommandSetPlatformPS:
		return "set-platform-ps"
	case CommandSetPlatformXB:
		return "set-platform-xb"
	case CommandSubstitute:
		return "substitute"
	default:
		return "unknown"
	}
}

// commandAliases maps a bang-command word onto its kind. The bare word
// "go" is special cased in ParseCommandKind.
var commandAliases = map[string]CommandKind{
	"active":     CommandToggleActive,
	"inactive":   CommandToggleActive,
	"deactivate": CommandToggleActive,

	"go":     CommandHardAssign,
	"assign": CommandHardAssign,
	"add":    CommandHardAssign,

	"clear": CommandClose,
	"close": CommandClose,

	"cmdr":      CommandSetCmdrName,
	"commander": CommandSetCmdrName,

	"codered": CommandToggleCodeRed,
	"cr":      CommandToggleCodeRed,
	"casered": CommandToggleCodeRed,

	"grab":   CommandGrab,
	"inject": CommandInject,

	"ircnick":  CommandSetIRCNick,
	"nick":     CommandSetIRCNick,
	"nickname": CommandSetIRCNick,

	"md": CommandMarkDeletion,

	"pc": CommandSetPlatformPC,
	"ps": CommandSetPlatformPS,
	"xb": CommandSetPlatformXB,

	"sub": CommandSubstitute,

	"sys":      CommandSetSystem,
	"system":   CommandSetSystem,
	"loc":      CommandSetSystem,
	"location": CommandSetSystem,

	"unassign":  CommandUnassign,
	"rm":        CommandUnassign,
	"remove":    CommandUnassign,
	"standdown": CommandUnassign,
}

// ParseCommandKind maps the leading word of a command line onto its
// kind. The word is either "go" (soft assign) or a "!" prefixed alias,
// matched case-insensitively.
func ParseCommandKind(word string) (CommandKind, error) {
	word = strings.ToLower(word)
	if word == "go" {
		return CommandSoftAssign, nil
	}

	if len(word) < 2 || word[0] != '!' {
		return 0, errors.WrapInvalid(
			fmt.Errorf("command %q: %w", word, errors.ErrUnknownCommand),
			"parse", "ParseCommandKind", "prefix check")
	}

	kind, ok := commandAliases[word[1:]]
	if !ok {
		return 0, errors.WrapInvalid(
			fmt.Errorf("command %q: %w", word, errors.ErrUnknownCommand),
			"parse", "ParseCommandKind", "alias lookup")
	}
	return kind, nil
}

// Command is one parsed dispatch command with its parameters.
type Command struct {
	Kind   CommandKind
	Params []string
}

// Param returns parameter i, the empty string when out of range.
func (c *Command) Param(i int) string {
	if i >= len(c.Params) {
		return ""
	}
	return c.Params[i]
}

// ParamCount returns the number of parameters.
func (c *Command) ParamCount() int {
	return len(c.Params)
}
