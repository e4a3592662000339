// Package assetcache downloads stock assets into a content-keyed directory and
// keeps a SQLite index of what is stored there.
//
// File names are derived from the locator hash so repeated builds reuse
// earlier downloads. A file smaller than the configured minimum is treated as
// invalid: a cached copy is re-downloaded once, a fresh download is discarded.
// Local paths are validated and returned without copying. YouTube watch URLs
// are fetched with yt-dlp.
//
// The index records size and last-use time for each entry so Prune can evict
// the least recently used files once the cache exceeds its byte budget. A
// build holds the directory lock for its whole duration.
package assetcache
