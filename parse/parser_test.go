package parse

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/targodan/UberSpatchBoard/data"
	"github.com/targodan/UberSpatchBoard/message"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedCall struct {
	Rat            *data.Rat
	CaseIdentifier string
}

type recordedReport struct {
	RatIRCName     string
	Report         data.Report
	CaseIdentifier string
}

// recordingHandler records every event the parser emits.
type recordingHandler struct {
	NewCases []*data.Case
	Commands []*Command
	Calls    []recordedCall
	Reports  []recordedReport
}

func (h *recordingHandler) HandleNewCase(c *data.Case) {
	h.NewCases = append(h.NewCases, c)
}

func (h *recordingHandler) HandleCommand(cmd *Command) {
	h.Commands = append(h.Commands, cmd)
}

func (h *recordingHandler) HandleCall(rat *data.Rat, caseIdentifier string) {
	h.Calls = append(h.Calls, recordedCall{Rat: rat, CaseIdentifier: caseIdentifier})
}

func (h *recordingHandler) HandleReport(ratIRCName string, report data.Report, caseIdentifier string) {
	h.Reports = append(h.Reports, recordedReport{
		RatIRCName:     ratIRCName,
		Report:         report,
		CaseIdentifier: caseIdentifier,
	})
}

func newTestParser() (*Parser, *recordingHandler) {
	p := NewParser(testLogger())
	h := &recordingHandler{}
	p.RegisterHandler(h)
	return p, h
}

func msgFrom(sender, content string) *message.Message {
	return message.New(time.Now(), sender, "#fuelrats", content)
}

func TestParseRatsignal(t *testing.T) {
	p, h := newTestParser()

	openTime := time.Date(2017, time.August, 17, 18, 22, 18, 0, time.Local)
	msg := message.New(openTime, "MechaSqueak[BOT]", "#fuelrats",
		"RATSIGNAL - CMDR Filip - System: ScoutCZ (not in EDDB) - Platform: PC - O2: OK - Language: Czech (cs) (Case #2)")

	result := p.ParseAndHandle(msg)
	assert.Equal(t, ResultRatsignal, result)

	require.Len(t, h.NewCases, 1)
	c := h.NewCases[0]
	assert.Equal(t, 2, c.Number())
	assert.Equal(t, "Filip", c.Client().IRCName())
	assert.Equal(t, "Filip", c.Client().CmdrName())
	assert.Equal(t, data.PlatformPC, c.Client().Platform())
	assert.Equal(t, "CS", c.Client().Language())
	assert.Equal(t, "ScoutCZ", c.System().Name())
	assert.False(t, c.IsCodeRed())
	assert.True(t, openTime.Equal(c.OpenTime()))
}

func TestParseRatsignalCodeRedAndNickname(t *testing.T) {
	p, h := newTestParser()

	msg := msgFrom("MechaSqueak[BOT]",
		"RATSIGNAL - CMDR Some Cmdr - System: Fuelum (16 LY from Sol) - Platform: XB - O2: NOT OK - Language: English (en-US) - IRC Nickname: some_nick (Case #11)")

	assert.Equal(t, ResultRatsignal, p.ParseAndHandle(msg))
	require.Len(t, h.NewCases, 1)
	c := h.NewCases[0]
	assert.Equal(t, 11, c.Number())
	assert.Equal(t, "some_nick", c.Client().IRCName())
	assert.Equal(t, "Some Cmdr", c.Client().CmdrName())
	assert.Equal(t, data.PlatformXbox, c.Client().Platform())
	assert.Equal(t, "EN", c.Client().Language())
	assert.True(t, c.IsCodeRed())
}

func TestParseRatsignalRejectsLooseMention(t *testing.T) {
	p, h := newTestParser()

	assert.Equal(t, ResultIgnored, p.ParseAndHandle(msgFrom("Kies", "did anyone see that ratsignal?")))
	assert.Empty(t, h.NewCases)
}

func TestParseCommandAssignVariants(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		kind   CommandKind
		params []string
	}{
		{"bare go is soft assign", "go 2 rat1 rat2", CommandSoftAssign, []string{"2", "rat1", "rat2"}},
		{"bang go is hard assign", "!go 2 rat1 rat2", CommandHardAssign, []string{"2", "rat1", "rat2"}},
		{"assign alias", "!assign 2 rat1", CommandHardAssign, []string{"2", "rat1"}},
		{"close with first limpet", "!close 2 rat1", CommandClose, []string{"2", "rat1"}},
		{"clear alias", "!clear 2", CommandClose, []string{"2"}},
		{"case-insensitive word", "!CLOSE 2", CommandClose, []string{"2"}},
		{"unassign", "!unassign 2 rat1", CommandUnassign, []string{"2", "rat1"}},
		{"standdown alias", "!standdown 2 rat1", CommandUnassign, []string{"2", "rat1"}},
		{"toggle active", "!active 2", CommandToggleActive, []string{"2"}},
		{"toggle codered", "!cr 2", CommandToggleCodeRed, []string{"2"}},
		{"inject keeps spaces", "!inject 2 client ran out of fuel", CommandInject, []string{"2", "client ran out of fuel"}},
		{"system keeps spaces", "!sys 2 LHS 3447", CommandSetSystem, []string{"2", "LHS 3447"}},
		{"cmdr name", "!cmdr 2 Some Cmdr", CommandSetCmdrName, []string{"2", "Some Cmdr"}},
		{"ircnick", "!nick 2 new_nick", CommandSetIRCNick, []string{"2", "new_nick"}},
		{"md", "!md 2 long gone", CommandMarkDeletion, []string{"2", "long gone"}},
		{"platform pc", "!pc 2", CommandSetPlatformPC, []string{"2"}},
		{"substitute", "!sub 2 oldrat newrat", CommandSubstitute, []string{"2", "oldrat", "newrat"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, h := newTestParser()
			assert.Equal(t, ResultCommand, p.ParseAndHandle(msgFrom("Dispatcher", test.line)))
			require.Len(t, h.Commands, 1)
			assert.Equal(t, test.kind, h.Commands[0].Kind)
			assert.Equal(t, test.params, h.Commands[0].Params)
		})
	}
}

func TestParseCommandUnknownWordFallsThrough(t *testing.T) {
	p, h := newTestParser()

	assert.Equal(t, ResultIgnored, p.ParseAndHandle(msgFrom("Kies", "!frobnicate 2")))
	assert.Empty(t, h.Commands)
}

func TestParseCommandBadArityDropsLine(t *testing.T) {
	p, h := newTestParser()

	// Inject needs a case reference and a note.
	assert.Equal(t, ResultIgnored, p.ParseAndHandle(msgFrom("Dispatcher", "!inject 2")))
	assert.Empty(t, h.Commands)
}

func TestParseCall(t *testing.T) {
	p, h := newTestParser()

	assert.Equal(t, ResultCall, p.ParseAndHandle(msgFrom("Kies", "5j #2")))
	require.Len(t, h.Calls, 1)
	assert.Equal(t, "Kies", h.Calls[0].Rat.IRCName())
	assert.Equal(t, 5, h.Calls[0].Rat.Jumps())
	assert.Equal(t, "2", h.Calls[0].CaseIdentifier)
}

func TestParseCallVariants(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		jumps      int
		identifier string
	}{
		{"bare number ref", "5j 2", 5, "2"},
		{"c-prefixed ref", "12J c3", 12, "3"},
		{"client name ref", "7j Filip", 7, "Filip"},
		{"no ref", "3j", 3, ""},
		{"embedded in chatter", "sure, 5j #2", 5, "2"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p, h := newTestParser()
			result := p.ParseAndHandle(msgFrom("Kies", test.line))
			require.Len(t, h.Calls, 1, "line %q should be a call", test.line)
			assert.True(t, result == ResultCall || result == ResultCallAndReport)
			assert.Equal(t, test.jumps, h.Calls[0].Rat.Jumps())
			assert.Equal(t, test.identifier, h.Calls[0].CaseIdentifier)
		})
	}
}

func TestParseCallRejectsNonCallLines(t *testing.T) {
	for _, line := range []string{"jump", "j5", "5 jumps", "no jumps here"} {
		p, h := newTestParser()
		p.ParseAndHandle(msgFrom("Kies", line))
		assert.Empty(t, h.Calls, "line %q must not be a call", line)
	}
}

func TestParseReportMultiplePerLine(t *testing.T) {
	p, h := newTestParser()

	assert.Equal(t, ResultReport, p.ParseAndHandle(msgFrom("Kies", "fr+ wr- #2")))
	require.Len(t, h.Reports, 2)

	assert.Equal(t, data.ReportFR, h.Reports[0].Report.Type)
	assert.True(t, h.Reports[0].Report.Positive)
	assert.Equal(t, "2", h.Reports[0].CaseIdentifier)
	assert.Equal(t, "Kies", h.Reports[0].RatIRCName)

	assert.Equal(t, data.ReportWR, h.Reports[1].Report.Type)
	assert.False(t, h.Reports[1].Report.Positive)
	assert.Equal(t, "2", h.Reports[1].CaseIdentifier, "identifier of the first token sticks")
}

func TestParseReportSynonymsAndCase(t *testing.T) {
	tests := []struct {
		line     string
		expected data.ReportType
		positive bool
	}{
		{"sys+", data.ReportSys, true},
		{"wb+", data.ReportBC, true},
		{"bc-", data.ReportBC, false},
		{"comm+", data.ReportComms, true},
		{"comms-", data.ReportComms, false},
		{"inst+", data.ReportInst, true},
		{"party-", data.ReportParty, false},
		{"FR+", data.ReportFR, true},
	}

	for _, test := range tests {
		t.Run(test.line, func(t *testing.T) {
			p, h := newTestParser()
			assert.Equal(t, ResultReport, p.ParseAndHandle(msgFrom("Kies", test.line)))
			require.Len(t, h.Reports, 1)
			assert.Equal(t, test.expected, h.Reports[0].Report.Type)
			assert.Equal(t, test.positive, h.Reports[0].Report.Positive)
		})
	}
}

func TestParseCallAndReportOnOneLine(t *testing.T) {
	p, h := newTestParser()

	result := p.ParseAndHandle(msgFrom("Kies", "5j fr- #2"))
	assert.Equal(t, ResultCallAndReport, result)
	require.Len(t, h.Calls, 1)
	require.Len(t, h.Reports, 1)
	assert.Equal(t, 5, h.Calls[0].Rat.Jumps())
	assert.Equal(t, data.ReportFR, h.Reports[0].Report.Type)
}

func TestParseCommandTakesPriority(t *testing.T) {
	p, h := newTestParser()

	// "!go 2 rat1" could be misread as grammar noise; command wins.
	assert.Equal(t, ResultCommand, p.ParseAndHandle(msgFrom("Dispatcher", "!go 2 rat1")))
	assert.Empty(t, h.Calls)
	assert.Empty(t, h.Reports)
}

func TestSanitizeCaseIdentifier(t *testing.T) {
	p := NewParser(testLogger())

	tests := []struct {
		in       string
		expected string
	}{
		{"", ""},
		{"2", "2"},
		{"#2", "2"},
		{"c2", "2"},
		{"C17", "17"},
		{"123", "123"},
		{"1234", "1234"}, // four digits is a client name, kept verbatim
		{"Filip", "Filip"},
		{"#Filip", "#Filip"},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			assert.Equal(t, test.expected, p.sanitizeCaseIdentifier(test.in))
		})
	}
}

func TestParseAndHandlePanicsWithoutHandler(t *testing.T) {
	p := NewParser(testLogger())
	assert.Panics(t, func() {
		p.ParseAndHandle(msgFrom("Kies", "5j #2"))
	})
}

func TestReportTokensNotPostfixesOfEachOther(t *testing.T) {
	// The multi-report re-scan advances by substring search; a token
	// that is a postfix of another would derail it.
	for _, a := range supportedReports {
		for _, b := range supportedReports {
			if a == b {
				continue
			}
			if len(a) < len(b) && b[len(b)-len(a):] == a {
				t.Errorf("token %q is a postfix of %q", a, b)
			}
		}
	}
}
