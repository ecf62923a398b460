package dialect

// NewUnknown returns the conservative SQL-92 fallback DialectEngine used
// when the live product cannot be identified. Every version-gated
// feature flag is false and DetermineStandardCompliance always returns
// Sql92 (spec.md §9's resolved Open Question for SupportedDatabase.Unknown).
func NewUnknown() DialectEngine {
	return &base{
		descriptor: Descriptor{
			Database:                     Unknown,
			ParameterMarker:              "?",
			SupportsNamedParameters:      false,
			QuotePrefix:                  `"`,
			QuoteSuffix:                  `"`,
			CompositeIdentifierSeparator: ".",
			MaxParameterLimit:            0,
			MaxOutputParameters:          0,
			ParameterNameMaxLength:       30,
			SupportsPreparedStatements:   false,
			ProcedureWrapStyle:           WrapCall,
			PoolingSettingName:           "",
			Features:                     FeatureFlags{},
			GeneratedKeyPlan:             CorrelationToken,
			RowLimitStyle:                LimitClause,
			Fallback:                     true,
		},
		versionQuery: "",
		sessionSettings: func(readOnly bool) string {
			return ""
		},
		uniqueViolation: func(err error) bool { return false },
		standardLevel: func(v *Version) SqlStandardLevel {
			return Sql92
		},
		compatWarning: "using the conservative SQL-92 fallback dialect: the live database product could not be identified, so dialect-specific features (MERGE, RETURNING, window functions, CTEs) are disabled",
	}
}
