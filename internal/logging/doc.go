// Package logging wires log/slog with shuttle's two output formats: a
// compact console handler for interactive use and a JSON handler for
// machine consumption. NewFromConfig additionally tees records into
// shuttle.log under the configured log directory.
package logging
