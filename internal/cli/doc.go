// Package cli implements the stepper command tree: run, plan, the groups,
// steps and contexts listings, report, config, init, version and completion.
// Execute is the single entry point used by cmd/stepper and returns the
// process exit code.
package cli
