// Package strings provides small string helpers shared by adapters and commands
package strings

import std "strings"

// IfEmpty returns def if in is empty, otherwise returns in
func IfEmpty[T any](in []T, def []T) []T {
	if len(in) == 0 {
		return def
	}
	return in
}

// SplitCSV splits a comma separated list, trimming items and dropping blanks
func SplitCSV(s string) []string {
	var out []string
	for p := range std.SplitSeq(s, ",") {
		if p = std.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FirstNonEmpty returns the first argument with non whitespace content
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if std.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Ptr returns a pointer to s, or nil if s is empty
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
