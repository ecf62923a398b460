// Package core is a dialect-aware, multi-tenant relational data-access
// core. It sits between application code and a set of pluggable database
// drivers (PostgreSQL, MySQL/MariaDB, SQL Server, Oracle, SQLite, DuckDB,
// Firebird, CockroachDB, and a conservative SQL-92 fallback) and provides:
//
//   - a per-database connection-lifecycle and mode engine (package connmode)
//   - a SQL composition engine with dialect-aware quoting and parameter
//     marker rewriting (package sqlcontainer)
//   - an entity/table mapper that turns typed records into parameterised
//     INSERT/UPDATE/UPSERT/DELETE/SELECT statements (package entity)
//   - an advanced type system mapping value objects to provider-specific
//     parameter configurations (package types)
//   - a fair, turnstile-based pool governor (package pool)
//
// This package holds the error-kind vocabulary shared by every subsystem,
// plus the top-level DatabaseContext/TenantContextRegistry wiring in
// package tenant.
package core
