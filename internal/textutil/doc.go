// Package textutil provides small text helpers shared by query generation,
// the local asset source, and cache file naming.
//
// Words extracts alphabetic tokens the way stock-search queries expect them;
// SanitizeToken and SanitizeFileName make arbitrary strings safe for use in
// paths.
package textutil
