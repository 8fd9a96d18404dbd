// Copyright 2026 The Craftcache Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the craftcache CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in
// cmd/craftcache/commands and dispatched via [Command.Execute], which
// handles flag parsing, subcommand routing, and structured help output
// with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// [ExitError] lets a command propagate a specific exit code — most
// importantly the exit code of a failed `charmcraft pack` — without the
// framework printing a redundant error line.
package cli
