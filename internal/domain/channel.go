package domain

import (
	"fmt"
	"strings"
)

// Channel is the front door an action came through.
type Channel string

const (
	ChannelWidget  Channel = "widget"
	ChannelChatGPT Channel = "chatgpt"
	ChannelClaude  Channel = "claude"
	ChannelGemini  Channel = "gemini"
	ChannelMCP     Channel = "mcp"
	ChannelAPI     Channel = "api"
)

var channels = map[Channel]struct{}{
	ChannelWidget: {}, ChannelChatGPT: {}, ChannelClaude: {},
	ChannelGemini: {}, ChannelMCP: {}, ChannelAPI: {},
}

func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := channels[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
	return c, nil
}

func (c Channel) Valid() bool {
	_, ok := channels[c]
	return ok
}
