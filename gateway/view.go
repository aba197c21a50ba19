package gateway

import (
	"time"

	"github.com/targodan/UberSpatchBoard/data"
)

// The view types are the JSON wire format. They take a consistent
// snapshot of the live entities at marshalling time.

type reportView struct {
	Type     string `json:"type"`
	Positive bool   `json:"positive"`
}

type ratView struct {
	IRCName  string       `json:"ircName"`
	CmdrName string       `json:"cmdrName"`
	Platform string       `json:"platform"`
	Jumps    int          `json:"jumps"`
	Assigned bool         `json:"assigned"`
	Reports  []reportView `json:"reports,omitempty"`
}

type clientView struct {
	IRCName  string `json:"ircName"`
	CmdrName string `json:"cmdrName"`
	Platform string `json:"platform"`
	Language string `json:"language"`
}

type caseView struct {
	Number          int        `json:"number"`
	Client          clientView `json:"client"`
	System          string     `json:"system"`
	SystemConfirmed bool       `json:"systemConfirmed"`
	CodeRed         bool       `json:"codeRed"`
	Active          bool       `json:"active"`
	Closed          bool       `json:"closed"`
	Rats            []ratView  `json:"rats"`
	Calls           []ratView  `json:"calls"`
	Notes           []string   `json:"notes"`
	FirstLimpet     *ratView   `json:"firstLimpet,omitempty"`
	OpenTime        time.Time  `json:"openTime"`
	CloseTime       *time.Time `json:"closeTime,omitempty"`
}

type eventView struct {
	Kind string   `json:"kind"`
	Case caseView `json:"case"`
}

func newReportView(report data.Report) reportView {
	return reportView{
		Type:     report.Type.String(),
		Positive: report.Positive,
	}
}

func newRatView(rat *data.Rat) ratView {
	reports := rat.Reports()
	reportViews := make([]reportView, 0, len(reports))
	for _, report := range reports {
		reportViews = append(reportViews, newReportView(report))
	}

	return ratView{
		IRCName:  rat.IRCName(),
		CmdrName: rat.CmdrName(),
		Platform: rat.Platform().String(),
		Jumps:    rat.Jumps(),
		Assigned: rat.Assigned(),
		Reports:  reportViews,
	}
}

func newClientView(client *data.Client) clientView {
	if client == nil {
		return clientView{}
	}
	return clientView{
		IRCName:  client.IRCName(),
		CmdrName: client.CmdrName(),
		Platform: client.Platform().String(),
		Language: client.Language(),
	}
}

func newCaseView(c *data.Case) caseView {
	rats := c.Rats()
	ratViews := make([]ratView, 0, len(rats))
	for _, rat := range rats {
		ratViews = append(ratViews, newRatView(rat))
	}

	calls := c.Calls()
	callViews := make([]ratView, 0, len(calls))
	for _, call := range calls {
		callViews = append(callViews, newRatView(call))
	}

	view := caseView{
		Number:   c.Number(),
		Client:   newClientView(c.Client()),
		CodeRed:  c.IsCodeRed(),
		Active:   c.IsActive(),
		Closed:   c.IsClosed(),
		Rats:     ratViews,
		Calls:    callViews,
		Notes:    c.Notes(),
		OpenTime: c.OpenTime(),
	}

	if system := c.System(); system != nil {
		view.System = system.Name()
		view.SystemConfirmed = system.Confirmed()
	}
	if firstLimpet := c.FirstLimpet(); firstLimpet != nil {
		limpetView := newRatView(firstLimpet)
		view.FirstLimpet = &limpetView
	}
	if c.IsClosed() {
		closeTime := c.CloseTime()
		view.CloseTime = &closeTime
	}

	return view
}

func newCaseViews(cases []*data.Case) []caseView {
	views := make([]caseView, 0, len(cases))
	for _, c := range cases {
		views = append(views, newCaseView(c))
	}
	return views
}

func newEventView(event data.Event) eventView {
	return eventView{
		Kind: event.Kind.String(),
		Case: newCaseView(event.Case),
	}
}
