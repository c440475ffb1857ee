// Package buildinfo reports the stepper version, commit and build date. The
// Makefile injects all three with -ldflags -X; go install falls back to the
// module version.
package buildinfo

var (
	Version = "dev"
	// Commit is the short git SHA.
	Commit = "unknown"
	// Date is the UTC build time, RFC 3339.
	Date = "unknown"
)
