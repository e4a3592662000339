// Package services defines shared utilities consumed by the build pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp build IDs, segment indexes, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell a
//     degradable failure (bad asset, unreachable provider) from one that must
//     stop the build.
//
// Use these helpers when wiring new pipeline steps so error handling and
// observability stay uniform.
package services
