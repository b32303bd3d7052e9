// Package core defines the dialect-neutral SQL syntax tree.
//
// This package contains:
//   - Statement, clause and expression node types (a closed variant set)
//   - Kind, the stable tag every node reports
//   - Walk / Children for generic traversal
//   - CloneStmt / CloneExpr for deep copies
//
// The Golden Rule: pkg/core imports ONLY pkg/token and stdlib.
// All other packages depend on core, not the reverse.
package core
