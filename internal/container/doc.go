// Package container stores a hierarchical document (groups, attributes and
// typed arrays) in a single SQLite file.
//
// Nodes live in one table keyed by (parent, name); attributes and array
// payloads hang off nodes with ON DELETE CASCADE, so removing a group removes
// its whole subtree in one statement. Multi-step mutations run through
// File.Update, which gives them all-or-nothing semantics.
package container
