// Package externalid maps storage keys to and from the identifiers the face
// index accepts ([a-zA-Z0-9_.\-:]+).
//
// Decode is a best-effort display reconstruction, not a guaranteed inverse.
// A genuine underscore between two all-caps tokens ("RACE_DAY.jpg") decodes
// to a space ("RACE DAY.jpg"), and any "_" that was not a leading "@" in the
// filename stays an underscore.
package externalid

import (
	"regexp"
	"strings"
)

var capsUnderscore = regexp.MustCompile(`([A-Z]{2,})_([A-Z]{2,})`)

// Encode replaces every "/" with ":" and every "@" with "_".
func Encode(key string) string {
	return strings.NewReplacer("/", ":", "@", "_").Replace(key)
}

// Decode restores path separators and, in the final segment, a leading "@"
// and spaces between all-caps tokens.
func Decode(id string) string {
	segments := strings.Split(id, ":")
	last := len(segments) - 1

	name := segments[last]
	if strings.HasPrefix(name, "_") {
		name = "@" + name[1:]
	}
	segments[last] = restoreSpaces(name)

	return strings.Join(segments, "/")
}

// restoreSpaces repeats the replacement until nothing changes so that
// overlapping runs like "AB_CD_EF" are fully rejoined.
func restoreSpaces(name string) string {
	for {
		next := capsUnderscore.ReplaceAllString(name, "$1 $2")
		if next == name {
			return name
		}
		name = next
	}
}
