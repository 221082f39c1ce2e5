// Package logging builds the slog loggers used by the reconciliation
// components.
//
// New and NewFromConfig pick a console or JSON handler, a level and the
// output writers. WithContext tags a logger with the services.Scope of a
// call (correlation id, stage, speaker), and WarnWithContext makes every
// warning carry an event type, a hint and an impact. NewNop discards
// everything and is the default wherever a logger is optional.
package logging
