// Package logging sets up slog for the ctxrank CLI: JSON records to a
// size-rotated file under ~/.ctxrank/logs/, optionally mirrored to stderr,
// plus a small viewer for the `ctxrank logs` command.
//
// Library users of pkg/ctxrank pass their own *slog.Logger and never touch
// this package.
package logging
