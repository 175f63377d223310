package mainutil

import (
	_ "embed"
	"strings"
)

//go:embed version.txt
var ticksVersion string

var appVersion = "unset"

// TicksVersion returns the version of the ticks module.
func TicksVersion() string {
	return strings.Trim(ticksVersion, " \t\r\n")
}

// SetAppVersion changes the application version.
func SetAppVersion(version string) {
	appVersion = strings.Trim(version, " \t\r\n")
}

// AppVersion returns the application version, or TicksVersion if
// SetAppVersion was never called.
func AppVersion() string {
	if appVersion == "unset" {
		return TicksVersion()
	}
	return appVersion
}
