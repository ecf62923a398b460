// Package connstring implements the connection-string grammar described
// in spec.md §6: semicolon-delimited key=value pairs with recognised
// key synonyms, plus the rewrite helpers (default/suffix application
// name, pool-size clamping, memory-marker detection, credential
// re-merge) the core applies before handing a string to a driver.
package connstring

import (
	"strings"

	"golang.org/x/text/cases"
)

// keyFolder implements Unicode case folding for key comparison, rather
// than the byte-level strings.ToLower a plain-ASCII grammar would get
// away with, matching the teacher's own choice of x/text/cases for
// identifier casing.
var keyFolder = cases.Fold()

// pair is one key=value entry, keeping the caller's original key
// spelling so an unrecognised key round-trips unchanged.
type pair struct {
	Key   string
	Value string
}

// ConnectionString is a parsed semicolon-delimited connection string, or
// a raw passthrough for inputs that are not in key=value grammar at all
// (a bare file path, ":memory:", "file::memory:").
type ConnectionString struct {
	raw     bool
	rawText string
	entries []pair
}

// keyAliases groups recognised keys into a canonical family. The first
// alias in each slice is the spelling used when a key is newly created
// by a rewrite helper.
var keyAliases = map[string][]string{
	"datasource":          {"Data Source", "Server", "Host"},
	"database":            {"Database"},
	"userid":              {"User Id", "Uid"},
	"password":            {"Password", "Pwd"},
	"applicationname":     {"Application Name", "App Name"},
	"pooling":             {"Pooling"},
	"minpoolsize":         {"Min Pool Size"},
	"maxpoolsize":         {"Max Pool Size"},
	"commandtimeout":      {"Command Timeout"},
	"persistsecurityinfo": {"Persist Security Info"},
}

func foldKey(key string) string {
	k := keyFolder.String(strings.TrimSpace(key))
	k = strings.ReplaceAll(k, " ", "")
	k = strings.ReplaceAll(k, "_", "")
	return k
}

// canonicalOf maps key to its alias-group id, or to its own folded form
// if it belongs to no known group (an unrecognised, provider-passthrough
// key).
func canonicalOf(key string) string {
	folded := foldKey(key)
	for canon, aliases := range keyAliases {
		for _, a := range aliases {
			if foldKey(a) == folded {
				return canon
			}
		}
	}
	return folded
}

func preferredSpelling(canon string) string {
	if aliases, ok := keyAliases[canon]; ok {
		return aliases[0]
	}
	return canon
}

// looksLikeMemoryMarker reports whether raw is a bare SQLite memory or
// file marker rather than key=value grammar.
func looksLikeMemoryMarker(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == ":memory:" || strings.HasPrefix(trimmed, "file::memory:") || strings.HasPrefix(trimmed, "file:")
}

// Parse splits s on ';' into key=value pairs. A bare file path or
// in-memory marker (no '=' grammar present, or a recognised SQLite
// marker) is stored as a raw passthrough and returned unchanged by
// String.
func Parse(s string) *ConnectionString {
	if looksLikeMemoryMarker(s) || !strings.Contains(s, "=") {
		return &ConnectionString{raw: true, rawText: s}
	}

	cs := &ConnectionString{}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(part[:eq])
		value := strings.TrimSpace(part[eq+1:])
		cs.entries = append(cs.entries, pair{Key: key, Value: value})
	}
	return cs
}

// IsRaw reports whether this connection string bypassed key=value
// grammar entirely (a bare path or memory marker).
func (cs *ConnectionString) IsRaw() bool { return cs.raw }

func (cs *ConnectionString) indexOf(canon string) int {
	for i, p := range cs.entries {
		if canonicalOf(p.Key) == canon {
			return i
		}
	}
	return -1
}

// Get looks up a value by canonical key family (e.g. "applicationname",
// "maxpoolsize") regardless of which synonym was used in the original
// string.
func (cs *ConnectionString) Get(canon string) (string, bool) {
	if i := cs.indexOf(canon); i >= 0 {
		return cs.entries[i].Value, true
	}
	return "", false
}

// Set inserts or replaces the value for canon, preserving the existing
// key spelling on update and using the alias group's preferred spelling
// on insert.
func (cs *ConnectionString) Set(canon, value string) {
	if i := cs.indexOf(canon); i >= 0 {
		cs.entries[i].Value = value
		return
	}
	cs.entries = append(cs.entries, pair{Key: preferredSpelling(canon), Value: value})
}

// Remove deletes the entry for canon, if present.
func (cs *ConnectionString) Remove(canon string) {
	i := cs.indexOf(canon)
	if i < 0 {
		return
	}
	cs.entries = append(cs.entries[:i], cs.entries[i+1:]...)
}

// String renders the connection string back to semicolon-delimited
// grammar, or returns the original raw text unchanged for a raw
// passthrough.
func (cs *ConnectionString) String() string {
	if cs.raw {
		return cs.rawText
	}
	parts := make([]string, len(cs.entries))
	for i, p := range cs.entries {
		parts[i] = p.Key + "=" + p.Value
	}
	return strings.Join(parts, ";")
}
