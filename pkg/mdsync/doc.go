// Copyright 2026 UF Open Source Club

// Package mdsync keeps a registry of bridged Discord channels, maintains an
// index message in a designated Matrix room listing all known bridges, and
// auto-invites subscribed Matrix users into newly bridged rooms.
//
// # Core Types
//
// [Engine] is the single-consumer synchronization loop. It dequeues channel
// lifecycle events, persists bridges to the registry, invites subscribers,
// and re-renders the index message. It is the only writer to the bridges
// table and the only component issuing room mutations.
//
// [EventQueue] is the unbounded multi-producer / single-consumer FIFO that
// carries [ChannelEvent] values from the Discord watcher into the engine.
//
// [DiscordWatcher] is thin glue over the Discord gateway: it enqueues
// channel create/update/delete events and the role-gated ~sync command.
//
// [MatrixClient] implements the engine's [DestinationClient] interface over
// a homeserver connection and handles the !subscribe, !unsubscribe and
// !unbridge commands, which call the registry directly.
//
// # Failure Model
//
// A storage failure while adding a bridge aborts that cycle before any
// invite or render. Room resolution and per-subscriber invite failures are
// logged and absorbed. Index send failures are logged; the next event
// re-renders. Events are never requeued; operators re-issue ~sync to
// converge.
package mdsync
