package data

// Identity carries the naming and platform attributes shared by every
// user on the board, clients and rats alike. It is embedded by value;
// the embedding entity is responsible for change notification.
type Identity struct {
	ircName  string
	cmdrName string
	platform Platform
}

// NewIdentity creates an Identity for the given IRC nickname. The CMDR
// name falls back to the IRC nickname until set explicitly.
func NewIdentity(ircName string) Identity {
	return Identity{ircName: ircName}
}

// IRCName returns the IRC nickname, the identity key of a user.
func (id *Identity) IRCName() string {
	return id.ircName
}

// CmdrName returns the CMDR name, defaulting to the IRC nickname when
// no CMDR name has been set.
func (id *Identity) CmdrName() string {
	if id.cmdrName == "" {
		return id.ircName
	}
	return id.cmdrName
}

// Platform returns the user's platform, PlatformUnknown if not known.
func (id *Identity) Platform() Platform {
	return id.platform
}

// SameUser reports whether two identities refer to the same user.
// Users are equal iff their IRC nicknames match.
func (id *Identity) SameUser(other *Identity) bool {
	return id.ircName == other.ircName
}
