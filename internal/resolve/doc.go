// Package resolve picks one asset per query from a tiered chain of sources.
//
// Resolution tries the primary video source, then the fallback video source,
// then the image source. Candidates already used earlier in the build are
// avoided while unused ones remain; once every candidate has been used, reuse
// is allowed rather than giving up. The outcome is a closed Asset variant:
// a video, an image, or nothing.
package resolve
