package data

import (
	"fmt"
	"strings"

	"github.com/targodan/UberSpatchBoard/errors"
)

// Platform is the game platform a user plays on.
type Platform int

const (
	// PlatformUnknown means the platform has not been determined yet.
	PlatformUnknown Platform = iota
	// PlatformPC is the PC platform.
	PlatformPC
	// PlatformPS4 is the PlayStation platform.
	PlatformPS4
	// PlatformXbox is the Xbox platform.
	PlatformXbox
)

// String returns the canonical short name of the platform.
func (p Platform) String() string {
	switch p {
	case PlatformPC:
		return "PC"
	case PlatformPS4:
		return "PS4"
	case PlatformXbox:
		return "XB"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler for JSON snapshots.
func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParsePlatform maps a platform token from chat onto a Platform.
// Tokens are matched case-insensitively.
func ParsePlatform(token string) (Platform, error) {
	switch strings.ToLower(token) {
	case "pc":
		return PlatformPC, nil
	case "ps", "ps4":
		return PlatformPS4, nil
	case "x", "xb", "xbox":
		return PlatformXbox, nil
	}
	return PlatformUnknown, errors.WrapInvalid(
		fmt.Errorf("platform %q: %w", token, errors.ErrUnknownPlatform),
		"data", "ParsePlatform", "token lookup")
}
