package version

// Version represents the current version of folia
const Version = "0.3.0"

// BuildVersion returns the version string for display
func BuildVersion() string {
	return "folia version " + Version
}
