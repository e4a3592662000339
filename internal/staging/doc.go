// Package staging manages per-build scratch directories under the configured
// work directory.
//
// Each build writes overlay PNGs, clip renders and the concatenated timeline
// into its own build-<id> directory. Successful builds remove theirs; failed
// or interrupted builds leave them behind for inspection until CleanStale
// reclaims them.
package staging
