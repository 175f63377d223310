package ticksutil

import (
	"regexp"
	"strings"
)

var (
	reNamedPort   = regexp.MustCompile(`^[A-Za-z][0-9A-Za-z]*(?:[._+-][0-9A-Za-z]+)*$`)
	reTrackerName = regexp.MustCompile(`^[A-Za-z][0-9A-Za-z]*(?:[._-][0-9A-Za-z]+)*$`)
)

// ValidateTrackerName checks that str can be used as a tracker name: in URL
// paths, Prometheus labels, and gRPC health subsystem names.
func ValidateTrackerName(str string) error {
	if str == "" {
		return TrackerNameError{Name: str, Err: ErrExpectNonEmpty}
	}
	if !reTrackerName.MatchString(str) {
		return TrackerNameError{Name: str, Err: RegexpMatchError{Input: str, Pattern: reTrackerName}}
	}
	return nil
}

// ValidateNamedPort checks that str is a valid key for a named port in a
// membership record.
func ValidateNamedPort(str string) error {
	if str == "" {
		return PortError{Type: NamedPort, Port: str, Err: ErrExpectNonEmpty}
	}
	if !reNamedPort.MatchString(str) {
		return PortError{Type: NamedPort, Port: str, Err: RegexpMatchError{Input: str, Pattern: reNamedPort}}
	}
	return nil
}

// ValidateZKPath checks that str is an absolute, canonical ZooKeeper path.
func ValidateZKPath(str string) error {
	if str == "" {
		return BadPathError{Path: str, Err: ErrExpectNonEmpty}
	}
	if str[0] != '/' {
		return BadPathError{Path: str, Err: ErrExpectLeadingSlash}
	}
	if str != "/" && strings.HasSuffix(str, "/") {
		return BadPathError{Path: str, Err: ErrExpectNoEndSlash}
	}
	return validateSegments(str, str+"/")
}

// ValidateEtcdPath checks that str is a canonical etcd key prefix, ending in
// '/'.
func ValidateEtcdPath(str string) error {
	if !strings.HasSuffix(str, "/") {
		return BadPathError{Path: str, Err: ErrExpectTrailingSlash}
	}
	return validateSegments(str, "/"+str)
}

func validateSegments(str string, padded string) error {
	switch {
	case strings.Contains(str, "//"):
		return BadPathError{Path: str, Err: ErrExpectNoDoubleSlash}
	case strings.Contains(padded, "/./"):
		return BadPathError{Path: str, Err: ErrExpectNoDot}
	case strings.Contains(padded, "/../"):
		return BadPathError{Path: str, Err: ErrExpectNoDotDot}
	default:
		return nil
	}
}
