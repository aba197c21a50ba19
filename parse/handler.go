package parse

import (
	"log/slog"
	"strconv"

	"github.com/targodan/UberSpatchBoard/data"
	"github.com/targodan/UberSpatchBoard/errors"
)

// DefaultHandler applies classified events to a CaseManager. It owns
// the disambiguation heuristic that resolves which case a loosely
// addressed command, call or report belongs to.
type DefaultHandler struct {
	cm     *data.CaseManager
	logger *slog.Logger

	// Lookup fallbacks: the most recently opened case, globally and
	// per platform.
	latestCase       *data.Case
	latestByPlatform map[data.Platform]*data.Case

	commandEffects map[CommandKind]func(*Command)
}

var _ Handler = (*DefaultHandler)(nil)

// NewDefaultHandler creates a handler. Call RegisterCaseManager before
// feeding it any events.
func NewDefaultHandler(logger *slog.Logger) *DefaultHandler {
	if logger == nil {
		logger = slog.Default().With("component", "handler")
	}

	h := &DefaultHandler{
		logger:           logger,
		latestByPlatform: make(map[data.Platform]*data.Case),
	}
	h.commandEffects = map[CommandKind]func(*Command){
		CommandClose:         h.commandClose,
		CommandHardAssign:    h.commandHardAssign,
		CommandSoftAssign:    h.commandSoftAssign,
		CommandUnassign:      h.commandUnassign,
		CommandGrab:          h.commandGrab,
		CommandInject:        h.commandInject,
		CommandMarkDeletion:  h.commandMarkDeletion,
		CommandSetCmdrName:   h.commandSetCmdrName,
		CommandSetIRCNick:    h.commandSetIRCNick,
		CommandSetPlatformPC: h.commandSetPlatform(data.PlatformPC),
		CommandSetPlatformPS: h.commandSetPlatform(data.PlatformPS4),
		CommandSetPlatformXB: h.commandSetPlatform(data.PlatformXbox),
		CommandSetSystem:     h.commandSetSystem,
		CommandSubstitute:    h.commandSubstitute,
		CommandToggleActive:  h.commandToggleActive,
		CommandToggleCodeRed: h.commandToggleCodeRed,
	}
	return h
}

// RegisterCaseManager sets the registry all events are applied to.
func (h *DefaultHandler) RegisterCaseManager(cm *data.CaseManager) {
	h.cm = cm
}

// requireCaseManager guards every handle method. Feeding events into
// an unregistered handler is a programming error, not an input error.
func (h *DefaultHandler) requireCaseManager() {
	if h.cm == nil {
		panic(errors.ErrNoCaseManager)
	}
}

// HandleNewCase registers the case and remembers it as the most
// recent one, globally and for its platform.
func (h *DefaultHandler) HandleNewCase(c *data.Case) {
	h.requireCaseManager()

	if err := h.cm.AddCase(c); err != nil {
		h.logger.Error("Could not register new case.", "case", c.Number(), "error", err)
		return
	}

	h.latestCase = c
	if client := c.Client(); client != nil {
		h.latestByPlatform[client.Platform()] = c
	}
}

// HandleCommand applies a dispatch command via the effect table.
func (h *DefaultHandler) HandleCommand(cmd *Command) {
	h.requireCaseManager()

	effect, ok := h.commandEffects[cmd.Kind]
	if !ok {
		h.logger.Error("No effect for command kind.", "kind", cmd.Kind)
		return
	}
	effect(cmd)
}

// HandleCall resolves the case and appends the jump call.
func (h *DefaultHandler) HandleCall(rat *data.Rat, caseIdentifier string) {
	h.requireCaseManager()

	c := h.lookupCase(caseIdentifier, rat)
	if c == nil {
		h.logger.Warn("Received call but couldn't find related case.",
			"rat", rat.IRCName(), "identifier", caseIdentifier)
		return
	}
	c.AddCall(rat)
}

// HandleReport resolves the case, then the rat within it, and inserts
// the report on that rat.
func (h *DefaultHandler) HandleReport(ratIRCName string, report data.Report, caseIdentifier string) {
	h.requireCaseManager()

	c := h.lookupCase(caseIdentifier, data.NewRat(ratIRCName))
	if c == nil {
		h.logger.Warn("Received report but couldn't find related case.",
			"rat", ratIRCName, "identifier", caseIdentifier)
		return
	}

	rat := c.LookupAssociatedRat(ratIRCName)
	if rat == nil {
		h.logger.Warn("Received report but couldn't find associated rat.",
			"rat", ratIRCName, "case", c.Number())
		return
	}
	rat.InsertReport(report)
}

// lookupCase resolves an ambiguous case reference. Fallbacks are tried
// in fixed priority order:
//
//  1. a numeric identifier is an exact case-number lookup
//  2. a non-empty identifier is a client IRC or CMDR name
//  3. a case the given rat is assigned to or has called on
//  4. the most recently opened case for the rat's platform, if active
//  5. the most recently opened case overall, if active
//
// Returns nil when every fallback misses.
func (h *DefaultHandler) lookupCase(identifier string, rat *data.Rat) *data.Case {
	if number, err := strconv.Atoi(identifier); err == nil {
		return h.cm.Get(number)
	}

	if identifier != "" {
		if c := h.cm.LookupCaseOfClient(identifier); c != nil {
			return c
		}
	}

	if rat != nil {
		if c := h.cm.LookupCaseWithRat(rat); c != nil {
			return c
		}
		if rat.Platform() != data.PlatformUnknown {
			if c := h.latestByPlatform[rat.Platform()]; c != nil && c.IsActive() && !c.IsClosed() {
				return c
			}
		}
	}

	if h.latestCase != nil && h.latestCase.IsActive() && !h.latestCase.IsClosed() {
		return h.latestCase
	}

	return nil
}

// lookupCommandCase resolves the case a command addresses via its
// first parameter, logging when nothing matches.
func (h *DefaultHandler) lookupCommandCase(cmd *Command) *data.Case {
	c := h.lookupCase(cmd.Param(0), nil)
	if c == nil {
		h.logger.Warn("Could not find case for command.",
			"kind", cmd.Kind, "identifier", cmd.Param(0))
	}
	return c
}

func (h *DefaultHandler) commandClose(cmd *Command) {
	c := h.lookupCommandCase(cmd)
	if c == nil {
		return
	}
	if cmd.ParamCount() >= 2 {
		ratName := cmd.Param(1)
		rat := c.LookupAssociatedRat(ratName)
		if rat == nil {
			rat = data.NewRat(ratName)
		}
		c.SetFirstLimpet(rat)
	}
	c.Close()
}

func (h *DefaultHandler) commandHardAssign(cmd *Command) {
	h.assignRats(cmd, true)
}

func (h *DefaultHandler) commandSoftAssign(cmd *Command) {
	h.assignRats(cmd, false)
}

// assignRats adds every named rat to the case, reusing rats already
// associated with it (assigned or calling) and synthesizing the rest.
func (h *DefaultHandler) assignRats(cmd *Command, markAssigned bool) {
	c := h.lookupCommandCase(cmd)
	if c == nil {
		return
	}
	for i := 1; i < cmd.ParamCount(); i++ {
		ratName := cmd.Param(i)
		rat := c.LookupAssociatedRat(ratName)
		if rat == nil {
			rat = data.NewRat(ratName)
		}
		if markAssigned {
			rat.SetAssigned(true)
		}
		if err := c.AssignRat(rat); err != nil {
			h.logger.Error("Could not assign rat.",
				"case", c.Number(), "rat", ratName, "error", err)
		}
	}
}

func (h *DefaultHandler) commandUnassign(cmd *Command) {
	c := h.lookupCommandCase(cmd)
	if c == nil {
		return
	}
	c.UnassignRat(c.LookupAssociatedRat(cmd.Param(1)))
}

func (h *DefaultHandler) commandGrab(cmd *Command) {
	// TODO: grab needs the per-sender line backlog which the board
	// does not keep yet; see the design notes.
	h.logger.Warn("Grab not yet supported.", "params", cmd.Params)
}

func (h *DefaultHandler) commandInject(cmd *Command) {
	c := h.lookupCommandCase(cmd)
	if c == nil {
		return
	}
	c.AddNote(cmd.Param(1))
}

func (h *DefaultHandler) commandMarkDeletion(cmd *Command) {
	c := h.lookupCommandCase(cmd)
	if c == nil {
		return
	}
	c.Close()
}

func (h *DefaultHandler) commandSetCmdrName(cmd *Command) {
	c := h.lookupCommandCase(cmd)
	if c == nil {
		return
	}
	c.Client().SetCmdrName(cmd.Param(1))
}

func (h *DefaultHandler) commandSetIRCNick(cmd *Command) {
	c := h.lookupCommandCase(cmd)
	if c == nil {
		return
	}
	c.Client().SetIRCName(cmd.Param(1))
}

func (h *DefaultHandler) commandSetPlatform(platform data.Platform) func(*Command) {
	return func(cmd *Command) {
		c := h.lookupCommandCase(cmd)
		if c == nil {
			return
		}
		c.Client().SetPlatform(platform)
	}
}

func (h *DefaultHandler) commandSetSystem(cmd *Command) {
	c := h.lookupCommandCase(cmd)
	if c == nil {
		return
	}
	c.SetSystem(data.NewSystem(cmd.Param(1)))
}

func (h *DefaultHandler) commandSubstitute(cmd *Command) {
	// Incomplete upstream behavior kept as is: the substituted rat
	// (parameter 1) is dropped and the rest becomes a note.
	h.logger.Warn("Substitute not yet properly supported. Redirecting to inject.",
		"params", cmd.Params)
	h.commandInject(&Command{
		Kind:   CommandInject,
		Params: []string{cmd.Param(0), cmd.Param(2)},
	})
}

func (h *DefaultHandler) commandToggleActive(cmd *Command) {
	c := h.lookupCommandCase(cmd)
	if c == nil {
		return
	}
	c.SetActive(!c.IsActive())
}

func (h *DefaultHandler) commandToggleCodeRed(cmd *Command) {
	c := h.lookupCommandCase(cmd)
	if c == nil {
		return
	}
	c.SetCodeRed(!c.IsCodeRed())
}
