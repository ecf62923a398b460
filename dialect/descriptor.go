package dialect

// SessionSettingsTemplate renders the semicolon-separated batch of
// per-session statements for either a read-only or read-write context.
type SessionSettingsTemplate func(readOnly bool) string

// Descriptor is the per-provider behavior table described in spec.md §3.
// Each dialect constructor builds its own Descriptor, and the engine that
// owns it may upgrade it once in PostInitialise (SQLite switches to the
// Returning plan on 3.35+); Descriptor() hands callers a copy.
type Descriptor struct {
	Database SupportedDatabase

	// ParameterMarker is the prefix used for bound parameters: "@", ":",
	// "?", or "$".
	ParameterMarker string
	// SupportsNamedParameters is false for purely positional dialects
	// (the marker is still rendered but the name is ignored).
	SupportsNamedParameters bool

	QuotePrefix string
	QuoteSuffix string
	// CompositeIdentifierSeparator splits a dotted identifier
	// ("schema.table") into segments that are quoted individually.
	CompositeIdentifierSeparator string

	MaxParameterLimit      int
	MaxOutputParameters    int
	ParameterNameMaxLength int

	SupportsPreparedStatements bool
	ProcedureWrapStyle         ProcedureWrapStyle

	// PoolingSettingName is the connection-string key controlling
	// pooling for this provider, or "" if the provider has none.
	PoolingSettingName string

	Features FeatureFlags

	GeneratedKeyPlan GeneratedKeyPlan

	RowLimitStyle RowLimitStyle

	SessionSettings SessionSettingsTemplate

	// Fallback marks the conservative SQL-92 descriptor used when the
	// live product cannot be identified.
	Fallback bool
}

// WrapObject applies this descriptor's quoting to an identifier, quoting
// each dot-separated segment individually. A nil or empty name yields an
// empty-but-valid token.
func (d Descriptor) WrapObject(name string) string {
	if name == "" {
		return ""
	}
	sep := d.CompositeIdentifierSeparator
	if sep == "" {
		sep = "."
	}
	segments := splitNonEmpty(name, sep)
	if len(segments) == 0 {
		return ""
	}
	out := make([]byte, 0, len(name)+2*len(segments)*len(d.QuotePrefix))
	for i, seg := range segments {
		if i > 0 {
			out = append(out, sep...)
		}
		out = append(out, d.QuotePrefix...)
		out = append(out, seg...)
		out = append(out, d.QuoteSuffix...)
	}
	return string(out)
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	start := 0
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i:i+len(sep)] == sep {
			if seg := s[start:i]; seg != "" {
				out = append(out, seg)
			}
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	if seg := s[start:]; seg != "" {
		out = append(out, seg)
	}
	return out
}
