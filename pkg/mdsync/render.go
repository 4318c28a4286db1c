// Copyright 2026 UF Open Source Club

package mdsync

import (
	"fmt"
	"strings"

	"github.com/ufosc/matrix-discord-sync/pkg/mdsync/store"
)

// The index message is rendered twice: a plain-text body and an HTML
// formatted body, both deterministic functions of the bridge list. The byte
// formats are load-bearing for clients that linkify the room aliases.

// RenderPlainIndex renders the plain-text index of bridged channels.
func RenderPlainIndex(bridges []store.Bridge, homeserver string) string {
	var sb strings.Builder
	sb.WriteString("List of bridged discord channels:\n")
	for _, b := range bridges {
		fmt.Fprintf(&sb, "- \tChannel: #%s\n\tBridge: %s\n", b.ChannelName, BridgeAlias(b, homeserver))
	}
	return sb.String()
}

// RenderHTMLIndex renders the HTML formatted index of bridged channels.
func RenderHTMLIndex(bridges []store.Bridge, homeserver string) string {
	var sb strings.Builder
	sb.WriteString("<h1>List of Bridged Discord Channels</h1>")
	for _, b := range bridges {
		fmt.Fprintf(&sb, "<strong>#%s</strong> - %s - %s<br/>", b.ChannelName, b.ChannelTopic, BridgeAlias(b, homeserver))
	}
	return sb.String()
}
