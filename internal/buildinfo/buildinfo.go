// Package buildinfo carries version identifiers stamped at link time via
// -ldflags, surfaced on the health endpoint.
package buildinfo

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info returns the build identifiers for health and diagnostics payloads.
func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
}
