package data

// ReportType enumerates the fixed vocabulary of status reports.
type ReportType int

const (
	// ReportSys reports whether the client's system is confirmed.
	ReportSys ReportType = iota
	// ReportFR reports a friend request.
	ReportFR
	// ReportWR reports a wing request.
	ReportWR
	// ReportBC reports a wing beacon.
	ReportBC
	// ReportComms reports comms+ readiness.
	ReportComms
	// ReportInst reports that the rat is in the client's instance.
	ReportInst
	// ReportParty reports a party invite.
	ReportParty
)

// String returns the chat token for the report type.
func (t ReportType) String() string {
	switch t {
	case ReportSys:
		return "sys"
	case ReportFR:
		return "fr"
	case ReportWR:
		return "wr"
	case ReportBC:
		return "bc"
	case ReportComms:
		return "comms"
	case ReportInst:
		return "inst"
	case ReportParty:
		return "party"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler for JSON snapshots.
func (t ReportType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Report is a status update of a fixed type with a polarity.
//
// Reports are identified by type only. A rat keeps at most one report
// per type; inserting a report of a type already present replaces the
// prior one regardless of polarity.
type Report struct {
	Type     ReportType `json:"type"`
	Positive bool       `json:"positive"`
}

// IsPlus reports whether the report has positive polarity.
func (r Report) IsPlus() bool {
	return r.Positive
}

// IsMinus reports whether the report has negative polarity.
func (r Report) IsMinus() bool {
	return !r.Positive
}
