package marshal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/targodan/UberSpatchBoard/errors"
	"github.com/targodan/UberSpatchBoard/message"
)

// DefaultChannel is assumed for Hexchat logs. Hexchat writes one file
// per channel, so the file itself does not name the channel; the
// source overrides this if it knows better.
const DefaultChannel = "#fuelrats"

// Hexchat decodes the Hexchat log format:
//
//	Aug 17 18:22:18 @Kies\theyo
//
// A 15 character timestamp, a space, the decorated nickname, a tab and
// the message text.
type Hexchat struct {
	eventPattern        *regexp.Regexp
	sanitizationPattern *regexp.Regexp

	// now is patched in tests to pin the year inference.
	now func() time.Time
}

// NewHexchat creates a marshaller for Hexchat channel logs.
func NewHexchat() *Hexchat {
	return &Hexchat{
		eventPattern:        regexp.MustCompile(`^(.*?)\t(.*)$`),
		sanitizationPattern: regexp.MustCompile(`^\.?:?<?[+\-%@]?(?P<clean>.*?)>?:?\.?$`),
		now:                 time.Now,
	}
}

var months = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

func (h *Hexchat) parseMonth(token string) (time.Month, error) {
	month, ok := months[strings.ToLower(token)]
	if !ok {
		return 0, fmt.Errorf("%q is not a valid month", token)
	}
	return month, nil
}

// year infers the year of a log line. Hexchat omits it; assume the
// current year, except for December lines read in January.
func (h *Hexchat) year(messageMonth time.Month) int {
	now := h.now()
	if messageMonth == time.December && now.Month() == time.January {
		return now.Year() - 1
	}
	return now.Year()
}

func (h *Hexchat) parseTimestamp(stamp string) (time.Time, error) {
	parts := strings.Split(stamp, " ")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("timestamp %q does not have three fields", stamp)
	}

	month, err := h.parseMonth(parts[0])
	if err != nil {
		return time.Time{}, err
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", parts[1], err)
	}

	timeParts := strings.Split(parts[2], ":")
	if len(timeParts) != 3 {
		return time.Time{}, fmt.Errorf("time %q does not have three fields", parts[2])
	}
	hour, err := strconv.Atoi(timeParts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hour %q: %w", timeParts[0], err)
	}
	minute, err := strconv.Atoi(timeParts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minute %q: %w", timeParts[1], err)
	}
	second, err := strconv.Atoi(timeParts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid second %q: %w", timeParts[2], err)
	}

	return time.Date(h.year(month), month, day, hour, minute, second, 0, time.Local), nil
}

// sanitizeNickname strips mode prefixes and decoration from a
// nickname, e.g. "@Kies" or "<Kies>" become "Kies".
func (h *Hexchat) sanitizeNickname(name string) string {
	m := h.sanitizationPattern.FindStringSubmatch(name)
	if m == nil {
		return name
	}
	return m[h.sanitizationPattern.SubexpIndex("clean")]
}

// Marshal decodes one Hexchat log line. Lines too short to carry a
// timestamp yield (nil, nil).
func (h *Hexchat) Marshal(rawLine string) (*message.Message, error) {
	if len(rawLine) < 17 {
		return nil, nil
	}

	timestamp, err := h.parseTimestamp(rawLine[:15])
	if err != nil {
		return nil, errors.WrapInvalid(err, "Hexchat", "Marshal", "timestamp parsing")
	}

	event := rawLine[16:]
	m := h.eventPattern.FindStringSubmatch(event)
	if m == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("line %q: %w", event, errors.ErrNotAMessage),
			"Hexchat", "Marshal", "line splitting")
	}

	return message.New(timestamp, h.sanitizeNickname(m[1]), DefaultChannel, m[2]), nil
}
