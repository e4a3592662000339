// Package sources searches stock-footage providers for candidate assets.
//
// Every provider implements Source and reports a Result that is explicitly
// found, empty, or failed. Callers treat a failed search as empty after
// logging it, so one unreachable provider never stops a build. Pexels and
// Pixabay are queried over their REST APIs (responses read with gjson), YouTube
// through yt-dlp's search prefix, and Local matches filenames in a directory.
package sources
