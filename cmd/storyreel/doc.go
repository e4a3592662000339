// Package main hosts the storyreel CLI entrypoint and command graph.
//
// The Cobra-based command tree turns a narration track and its captions into
// a stock-footage video, generates captions with WhisperX, scaffolds and
// prints configuration, checks external dependencies, and maintains the
// shared asset cache. It centralizes configuration resolution and structured
// logging setup so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
