// Package services defines what the reconciliation engine and its external
// integrations share: the Scope carried through a call's context, and the
// error kinds used to tell bad input and bad configuration from upstream
// failures that are worth retrying.
package services
