// Command-free library module implementing a MyBatis-style SQL mapping and
// execution engine in Go:
//   - Dynamic SQL as a small AST (package ast) instead of MyBatis's Java
//     SqlNode tree, walked once per BoundSQL build rather than templated as
//     text and re-parsed.
//   - Two-tier statement cache (package cache): a session-scoped L1 and a
//     namespace-scoped, decorator-composed L2, plus per-transaction staging
//     so an uncommitted write can't poison a shared cache entry.
//   - Reflection split into bulk row-to-struct scanning and single-property
//     get/set (package internal/reflection), because a result set's row
//     shape is known once per query while a result map's nested-association
//     writes need arbitrary property paths.
//   - Two independent row-mapping strategies (package resultmap for
//     tag/ResultMap-driven mapping, package mapperp for hand-written
//     reflection-free combinators) that a statement picks between.
//   - Contextual transactions and a generic Repository[E] (package session),
//     dialect-aware placeholder rewriting (package driver), viper-backed
//     configuration, logrus-backed logging, and Prometheus metrics, in the
//     shape powerputtygo's own sqlp package used them.
//
// See SPEC_FULL.md for the full module-by-module specification and
// DESIGN.md for how each package traces back to its source material.
package mybatis3
