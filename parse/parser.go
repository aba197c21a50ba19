// Package parse classifies IRC chat lines into semantic events and
// applies them to the case registry.
//
// The Parser owns the line grammar: a single fixed-shape RATSIGNAL
// announcement opens a case, "!" commands from dispatchers mutate it,
// and free-form lines from rats may carry jump calls ("5j #2") and
// status reports ("fr+ wr- #2"). The Handler resolves which case an
// ambiguous line refers to and applies the event to the domain model.
package parse

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/targodan/UberSpatchBoard/data"
	"github.com/targodan/UberSpatchBoard/errors"
	"github.com/targodan/UberSpatchBoard/message"
)

// ParseResult tells which grammars a line matched.
type ParseResult int

const (
	// ResultIgnored means the line matched no grammar.
	ResultIgnored ParseResult = iota
	// ResultCommand means the line was a dispatch command.
	ResultCommand
	// ResultRatsignal means the line opened a new case.
	ResultRatsignal
	// ResultCall means the line was a jump call.
	ResultCall
	// ResultReport means the line carried one or more reports.
	ResultReport
	// ResultCallAndReport means the line was a call and carried reports.
	ResultCallAndReport
)

// String returns a readable name for the parse result.
func (r ParseResult) String() string {
	switch r {
	case ResultIgnored:
		return "ignored"
	case ResultCommand:
		return "command"
	case ResultRatsignal:
		return "ratsignal"
	case ResultCall:
		return "call"
	case ResultReport:
		return "report"
	case ResultCallAndReport:
		return "call+report"
	default:
		return "unknown"
	}
}

// Handler receives the classified events produced by the Parser.
type Handler interface {
	// HandleNewCase registers a freshly announced case.
	HandleNewCase(c *data.Case)
	// HandleCommand applies a dispatch command.
	HandleCommand(cmd *Command)
	// HandleCall applies a jump call. caseIdentifier is the sanitized
	// case reference, empty when the call did not name a case.
	HandleCall(rat *data.Rat, caseIdentifier string)
	// HandleReport applies one status report from the named rat.
	HandleReport(ratIRCName string, report data.Report, caseIdentifier string)
}

// supportedReports is the closed report vocabulary.
//
// IMPORTANT: no report token may be a string postfix of another
// supported token. The multi-report re-scan in parseAndHandleReport
// advances past each matched token by plain substring search and would
// misfire otherwise.
var supportedReports = []string{
	"sys", "fr", "wr", "wb", "bc", "comm", "comms", "inst", "party",
}

// caseIdentifierPattern matches an optional trailing case reference:
// "#123", "c123", a bare number or a client name token.
const caseIdentifierPattern = `(?P<case>(?:[cC#]?\d+|\S+)?)`

// Parser classifies messages and feeds the resulting events into its
// registered Handler. Grammars are tried in fixed priority order:
// command, ratsignal, then call and report (a line may be both).
type Parser struct {
	handler Handler
	logger  *slog.Logger

	ratsignalPattern *regexp.Regexp
	commandPattern   *regexp.Regexp
	callPattern      *regexp.Regexp
	reportPattern    *regexp.Regexp

	twoArgumentsPattern   *regexp.Regexp
	threeArgumentsPattern *regexp.Regexp

	caseSanitizerPattern *regexp.Regexp
}

// NewParser creates a Parser. Call RegisterHandler before ParseAndHandle.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default().With("component", "parser")
	}

	reportAlternatives := strings.Join(supportedReports, "|")

	return &Parser{
		logger: logger,

		ratsignalPattern: regexp.MustCompile(
			`^RATSIGNAL - CMDR (?P<cmdr>.*?) - System: (?P<system>.*?) \(.*?\)` +
				` - Platform: (?P<platform>\S+) - O2: (?P<o2>(?:NOT )?OK)` +
				` - Language: .+? \((?P<language>\w\w)(?:-\w\w)?\)` +
				`(?: - IRC Nickname: (?P<ircnick>\S+))? \(Case #(?P<number>\d+)\)$`),
		commandPattern: regexp.MustCompile(`^(?P<cmd>!\S+|go)\s+(?P<params>.*)$`),
		callPattern: regexp.MustCompile(
			`^(?:|.*[\s,])(?P<jumps>\d+)[jJ](?:\W|$).*?` + caseIdentifierPattern + `$`),
		reportPattern: regexp.MustCompile(
			`(?i)^(?:|.*[\s,])(?P<type>(?:` + reportAlternatives + `))(?P<state>\+|-)(?:\s|$).*?` +
				caseIdentifierPattern + `$`),

		twoArgumentsPattern:   regexp.MustCompile(`^(\S+)\s+(.*)$`),
		threeArgumentsPattern: regexp.MustCompile(`^(\S+)\s+(\S+)\s+(.*)$`),

		caseSanitizerPattern: regexp.MustCompile(`^(?:[cC#]?(?P<caseNumber>\d{1,3})|(?P<clientName>.+))$`),
	}
}

// RegisterHandler sets the Handler receiving classified events.
func (p *Parser) RegisterHandler(handler Handler) {
	p.handler = handler
}

// ParseAndHandle classifies one message and invokes the Handler for
// every event the line yields. Lines matching no grammar are ignored.
//
// The Handler must have been registered beforehand; this is a
// programming error, not an input error.
func (p *Parser) ParseAndHandle(msg *message.Message) ParseResult {
	if p.handler == nil {
		panic(errors.ErrNoHandler)
	}

	if p.parseAndHandleCommand(msg) {
		return ResultCommand
	}
	if p.parseAndHandleRatsignal(msg) {
		return ResultRatsignal
	}

	wasCall := p.parseAndHandleCall(msg)
	wasReport := p.parseAndHandleReport(msg)
	switch {
	case wasCall && wasReport:
		return ResultCallAndReport
	case wasCall:
		return ResultCall
	case wasReport:
		return ResultReport
	}

	return ResultIgnored
}

func (p *Parser) parseAndHandleRatsignal(msg *message.Message) bool {
	m := p.ratsignalPattern.FindStringSubmatch(msg.Content)
	if m == nil {
		if strings.Contains(strings.ToLower(msg.Content), "ratsignal") {
			p.logger.Warn("Possibly missed RATSIGNAL.", "content", msg.Content)
		}
		return false
	}
	group := submatchMap(p.ratsignalPattern, m)

	platform, err := data.ParsePlatform(group["platform"])
	if err != nil {
		p.logger.Error("RATSIGNAL with unknown platform, dropping line.",
			"platform", group["platform"], "error", err)
		return false
	}

	number, err := strconv.Atoi(group["number"])
	if err != nil {
		p.logger.Error("RATSIGNAL with invalid case number, dropping line.",
			"number", group["number"], "error", err)
		return false
	}

	ircNick := group["ircnick"]
	cmdrName := group["cmdr"]
	if ircNick == "" {
		ircNick = cmdrName
	}

	c := data.NewCase(
		number,
		data.NewClient(ircNick, cmdrName, platform, strings.ToLower(group["language"])),
		data.NewSystem(group["system"]),
		group["o2"] != "OK",
		msg.Timestamp,
	)

	p.handler.HandleNewCase(c)
	return true
}

func (p *Parser) parseAndHandleCommand(msg *message.Message) bool {
	m := p.commandPattern.FindStringSubmatch(strings.TrimSpace(msg.Content))
	if m == nil {
		return false
	}
	group := submatchMap(p.commandPattern, m)

	kind, err := ParseCommandKind(group["cmd"])
	if err != nil {
		// Not every "!word" is ours; other bots share the channel.
		p.logger.Debug("Unrecognized command word.", "cmd", group["cmd"], "error", err)
		return false
	}

	params, err := p.splitCommandParams(kind, group["params"])
	if err != nil {
		p.logger.Error("Dropping malformed command line.",
			"kind", kind, "params", group["params"], "error", err)
		return false
	}

	p.handler.HandleCommand(&Command{Kind: kind, Params: params})
	return true
}

func (p *Parser) parseAndHandleCall(msg *message.Message) bool {
	m := p.callPattern.FindStringSubmatch(strings.TrimSpace(msg.Content))
	if m == nil {
		return false
	}
	group := submatchMap(p.callPattern, m)

	jumps, err := strconv.Atoi(group["jumps"])
	if err != nil {
		p.logger.Error("Call with invalid jump count, dropping line.",
			"jumps", group["jumps"], "error", err)
		return false
	}

	call := data.NewRat(msg.Sender)
	call.SetJumps(jumps)

	p.handler.HandleCall(call, p.sanitizeCaseIdentifier(group["case"]))
	return true
}

// parseAndHandleReport scans the line from left to right for report
// tokens, emitting one event per token. The case identifier of the
// first match sticks for the whole line. After each match the scan
// resumes just past the matched token; this only terminates correctly
// because no report token is a postfix of another.
func (p *Parser) parseAndHandleReport(msg *message.Message) bool {
	matchedAtLeastOnce := false
	text := msg.Content
	caseIdentifier := ""
	haveIdentifier := false

	for {
		m := p.reportPattern.FindStringSubmatch(text)
		if m == nil {
			break
		}
		matchedAtLeastOnce = true
		group := submatchMap(p.reportPattern, m)

		if !haveIdentifier {
			caseIdentifier = p.sanitizeCaseIdentifier(group["case"])
			haveIdentifier = true
		}

		reportType, err := parseReportType(group["type"])
		if err != nil {
			p.logger.Error("Dropping report with unknown type.",
				"type", group["type"], "error", err)
			break
		}

		p.handler.HandleReport(msg.Sender, data.Report{
			Type:     reportType,
			Positive: group["state"] == "+",
		}, caseIdentifier)

		nextStart := strings.Index(text, group["type"]) + len(group["type"]) + 1
		if len(text) <= nextStart {
			break
		}
		text = strings.TrimSpace(text[nextStart:])
	}

	return matchedAtLeastOnce
}

// sanitizeCaseIdentifier normalizes a case reference: a leading '#',
// 'c' or 'C' is stripped from a 1-3 digit number; anything else is
// kept verbatim as a client name. Empty input stays empty, deferring
// to the Handler's lookup fallbacks.
func (p *Parser) sanitizeCaseIdentifier(identifier string) string {
	if identifier == "" {
		return ""
	}
	m := p.caseSanitizerPattern.FindStringSubmatch(identifier)
	if m == nil {
		return identifier
	}
	group := submatchMap(p.caseSanitizerPattern, m)
	if group["caseNumber"] != "" {
		return group["caseNumber"]
	}
	return group["clientName"]
}

// splitCommandParams splits the parameter text of a command according
// to the arity rules of its kind.
func (p *Parser) splitCommandParams(kind CommandKind, params string) ([]string, error) {
	params = strings.TrimSpace(params)

	switch kind {
	case CommandToggleActive, CommandToggleCodeRed, CommandGrab,
		CommandSetPlatformPC, CommandSetPlatformPS, CommandSetPlatformXB:
		// Single free-form parameter, taken verbatim.
		return []string{params}, nil

	case CommandSoftAssign, CommandHardAssign, CommandClose, CommandUnassign:
		return strings.Fields(params), nil

	case CommandSetCmdrName, CommandInject, CommandSetIRCNick,
		CommandSetSystem, CommandMarkDeletion:
		// First token, then the remainder verbatim (it may contain spaces).
		m := p.twoArgumentsPattern.FindStringSubmatch(params)
		if m == nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%s needs two parameters, got %q: %w", kind, params, errors.ErrBadArity),
				"Parser", "splitCommandParams", "arity check")
		}
		return []string{m[1], m[2]}, nil

	case CommandSubstitute:
		m := p.threeArgumentsPattern.FindStringSubmatch(params)
		if m == nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%s needs three parameters, got %q: %w", kind, params, errors.ErrBadArity),
				"Parser", "splitCommandParams", "arity check")
		}
		return []string{m[1], m[2], m[3]}, nil
	}

	return nil, nil
}

// parseReportType maps a report token onto its type. Tokens are
// matched case-insensitively; "wb" and "bc" are synonyms, as are
// "comm" and "comms".
func parseReportType(token string) (data.ReportType, error) {
	switch strings.ToLower(token) {
	case "sys":
		return data.ReportSys, nil
	case "fr":
		return data.ReportFR, nil
	case "wr":
		return data.ReportWR, nil
	case "wb", "bc":
		return data.ReportBC, nil
	case "comm", "comms":
		return data.ReportComms, nil
	case "inst":
		return data.ReportInst, nil
	case "party":
		return data.ReportParty, nil
	}
	return 0, errors.WrapInvalid(
		fmt.Errorf("report %q: %w", token, errors.ErrUnknownReport),
		"parse", "parseReportType", "token lookup")
}

// submatchMap pairs a pattern's named groups with their submatches.
func submatchMap(pattern *regexp.Regexp, match []string) map[string]string {
	groups := make(map[string]string)
	for i, name := range pattern.SubexpNames() {
		if name != "" && i < len(match) {
			groups[name] = match[i]
		}
	}
	return groups
}
