// Package misc keeps build time information.
package misc

// Set by the linker: -X scorewd/misc.version=... -X scorewd/misc.gitHash=...
var (
	version = "dev"
	gitHash = "unknown"
)

const appName = "scorewd"

// GetAppName returns application name. When binary was renamed we still want
// consistent names for logs and reports.
func GetAppName() string {
	return appName
}

// GetVersion returns program version.
func GetVersion() string {
	return version
}

// GetGitHash returns git commit program was built from.
func GetGitHash() string {
	return gitHash
}
