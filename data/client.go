package data

import (
	"strings"
	"sync"
)

// Client is the person being rescued.
type Client struct {
	mu sync.RWMutex
	id Identity
	// Two-letter language code, stored upper case.
	language string

	onChange func()
}

// NewClient creates a Client with the given names, platform and
// language. The language code is normalized to upper case.
func NewClient(ircName, cmdrName string, platform Platform, language string) *Client {
	return &Client{
		id: Identity{
			ircName:  ircName,
			cmdrName: cmdrName,
			platform: platform,
		},
		language: strings.ToUpper(language),
	}
}

// IRCName returns the client's IRC nickname.
func (c *Client) IRCName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id.IRCName()
}

// CmdrName returns the client's CMDR name, falling back to the IRC
// nickname when unset.
func (c *Client) CmdrName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id.CmdrName()
}

// Platform returns the client's platform.
func (c *Client) Platform() Platform {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id.platform
}

// Language returns the two character upper case language code.
func (c *Client) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

// SetIRCName changes the client's IRC nickname.
func (c *Client) SetIRCName(ircName string) {
	c.mu.Lock()
	c.id.ircName = ircName
	c.mu.Unlock()
	c.notify()
}

// SetCmdrName changes the client's CMDR name.
func (c *Client) SetCmdrName(cmdrName string) {
	c.mu.Lock()
	c.id.cmdrName = cmdrName
	c.mu.Unlock()
	c.notify()
}

// SetPlatform changes the client's platform.
func (c *Client) SetPlatform(platform Platform) {
	c.mu.Lock()
	c.id.platform = platform
	c.mu.Unlock()
	c.notify()
}

// SetLanguage sets the client's language from a two character code.
func (c *Client) SetLanguage(language string) {
	c.mu.Lock()
	c.language = strings.ToUpper(language)
	c.mu.Unlock()
	c.notify()
}

func (c *Client) bind(onChange func()) {
	c.mu.Lock()
	c.onChange = onChange
	c.mu.Unlock()
}

func (c *Client) notify() {
	c.mu.RLock()
	fn := c.onChange
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
