package connstring

import (
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/shiftdb/core"
)

// ApplyDefaultApplicationName sets Application Name to name unless an
// existing (non-empty) value is already present; an existing value is
// preserved.
func ApplyDefaultApplicationName(cs *ConnectionString, name string) {
	if cs.IsRaw() {
		return
	}
	if existing, ok := cs.Get("applicationname"); ok && existing != "" {
		return
	}
	cs.Set("applicationname", name)
}

// AppendApplicationNameSuffix appends suffix to the current Application
// Name, idempotently: if the name already ends with suffix, it is left
// unchanged ("MyApp:ro" + ":ro" -> "MyApp:ro").
func AppendApplicationNameSuffix(cs *ConnectionString, suffix string) {
	if cs.IsRaw() || suffix == "" {
		return
	}
	current, _ := cs.Get("applicationname")
	if strings.HasSuffix(current, suffix) {
		return
	}
	cs.Set("applicationname", current+suffix)
}

// SetMaxPoolSize sets Max Pool Size to n. A zero or negative n is
// ignored, leaving any existing value untouched.
func SetMaxPoolSize(cs *ConnectionString, n int) {
	if cs.IsRaw() || n <= 0 {
		return
	}
	cs.Set("maxpoolsize", strconv.Itoa(n))
}

// StripMaxPoolSizeIfUnsupported removes Max Pool Size (and Min Pool
// Size) when supported is false, for dialects whose driver has no
// pooling-size setting of its own.
func StripMaxPoolSizeIfUnsupported(cs *ConnectionString, supported bool) {
	if cs.IsRaw() || supported {
		return
	}
	cs.Remove("maxpoolsize")
	cs.Remove("minpoolsize")
}

// DetectMemoryMarker reports whether raw is a SQLite in-memory or bare
// file-path connection string (":memory:", "file::memory:", or any
// "file:" DSN), which disables pooling rewrites entirely.
func DetectMemoryMarker(raw string) bool {
	return looksLikeMemoryMarker(raw)
}

// ReapplyDroppedCredentials detects the PersistSecurityInfo=false
// discrepancy: a provider builder that silently drops User Id/Password
// on round-trip. If original carried credentials that rewritten lacks,
// they are re-merged into rewritten in place.
func ReapplyDroppedCredentials(original, rewritten *ConnectionString) {
	if original.IsRaw() || rewritten.IsRaw() {
		return
	}
	if user, ok := original.Get("userid"); ok {
		if _, present := rewritten.Get("userid"); !present {
			rewritten.Set("userid", user)
		}
	}
	if pass, ok := original.Get("password"); ok {
		if _, present := rewritten.Get("password"); !present {
			rewritten.Set("password", pass)
		}
	}
}

// libpqKeyToCanonical maps a libpq keyword (as produced by pq.ParseURL)
// to this package's canonical key family.
func libpqKeyToCanonical(key string) string {
	switch key {
	case "host", "port":
		return "datasource"
	case "dbname":
		return "database"
	case "user":
		return "userid"
	case "password":
		return "password"
	case "application_name":
		return "applicationname"
	default:
		return key
	}
}

// NormalizePostgresURL converts a postgres://-style URL DSN into this
// package's ConnectionString grammar, using lib/pq's own URL parser so
// the keyword/value libpq DSN it produces is interpreted exactly as
// pq itself would.
func NormalizePostgresURL(rawURL string) (*ConnectionString, error) {
	kv, err := pq.ParseURL(rawURL)
	if err != nil {
		return nil, core.NewInvalidArgumentError("connectionString", err.Error())
	}

	cs := &ConnectionString{}
	for _, tok := range splitLibpqKeywords(kv) {
		eq := strings.IndexByte(tok, '=')
		if eq < 0 {
			continue
		}
		key := tok[:eq]
		value := strings.Trim(tok[eq+1:], "'")
		canon := libpqKeyToCanonical(key)
		if key == "host" {
			if existing, ok := cs.Get(canon); ok {
				cs.Set(canon, existing+":"+value)
				continue
			}
		}
		if key == "port" {
			if existing, ok := cs.Get(canon); ok {
				cs.Set(canon, existing+":"+value)
				continue
			}
		}
		cs.entries = append(cs.entries, pair{Key: preferredSpelling(canon), Value: value})
	}
	return cs, nil
}

// splitLibpqKeywords tokenises a libpq "key=value key='quoted value'"
// string, respecting single-quoted values that may contain spaces.
func splitLibpqKeywords(kv string) []string {
	var tokens []string
	var b strings.Builder
	inQuote := false
	for _, r := range kv {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == ' ' && !inQuote:
			if b.Len() > 0 {
				tokens = append(tokens, b.String())
				b.Reset()
			}
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
