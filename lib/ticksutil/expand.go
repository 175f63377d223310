package ticksutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
)

var reURLScheme = regexp.MustCompile(`^[A-Za-z][0-9A-Za-z+.-]*://`)

// ExpandString expands ${ENV_VAR} references.  Every missing variable is
// reported, but expansion continues with the empty string in its place.
func ExpandString(in string) (string, error) {
	var errs multierror.Error
	expanded := os.Expand(in, func(name string) string {
		value, found := os.LookupEnv(name)
		if !found {
			errs.Errors = append(errs.Errors, EnvVarLookupError{Var: name, Err: ErrNotExist})
		}
		return value
	})
	return expanded, collapse(errs)
}

// ExpandPath expands ${ENV_VAR} references, ~ and ~user references, and makes
// the path absolute (by assuming it is relative to the current directory).
func ExpandPath(in string) (string, error) {
	return ExpandPathWithCWD(in, ".")
}

// ExpandPathWithCWD expands ${ENV_VAR} references, ~ and ~user references, and
// makes the path absolute (by assuming it is relative to the given cwd).
//
// Abstract AF_UNIX names ("\x00..." or "@...") and URLs are left alone.
func ExpandPathWithCWD(in string, cwd string) (string, error) {
	var errs multierror.Error

	expanded, err := ExpandString(in)
	appendErr(&errs, err)

	if strings.HasPrefix(expanded, "~") {
		userName, rest := expanded[1:], ""
		if i := strings.IndexByte(expanded, '/'); i >= 0 {
			userName, rest = expanded[1:i], expanded[i+1:]
		}

		homeDir, err := lookupHome(userName)
		appendErr(&errs, err)
		expanded = filepath.Join(homeDir, rest)
	}

	if expanded != "" && expanded[0] != '\x00' && expanded[0] != '@' && !reURLScheme.MatchString(expanded) {
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(cwd, expanded)
		}
		if !filepath.IsAbs(expanded) {
			abs, err := PathAbs(expanded)
			if err == nil {
				expanded = abs
			}
			appendErr(&errs, err)
		}
		expanded = filepath.Clean(expanded)
	}

	return expanded, collapse(errs)
}

// ExpandPassword expands ${ENV_VAR} references and @file references.
func ExpandPassword(in string) (string, error) {
	expanded, err := ExpandString(in)
	if err != nil {
		return expanded, err
	}

	if strings.HasPrefix(expanded, "@") {
		raw, err := os.ReadFile(expanded[1:])
		if err != nil {
			return "", err
		}
		expanded = strings.Trim(string(raw), " \t\r\n")
	}
	return expanded, nil
}

func lookupHome(userName string) (string, error) {
	if userName == "" {
		if value, found := os.LookupEnv("HOME"); found {
			return value, nil
		}
	}

	u, err := LookupUserByName(userName)
	switch {
	case err == nil:
		return u.HomeDir, nil
	case userName == "":
		return "/home/self", err
	default:
		return filepath.Join("/home", userName), err
	}
}

func appendErr(errs *multierror.Error, err error) {
	if err == nil {
		return
	}
	if multi, ok := err.(*multierror.Error); ok {
		errs.Errors = append(errs.Errors, multi.Errors...)
		return
	}
	errs.Errors = append(errs.Errors, err)
}

func collapse(errs multierror.Error) error {
	switch len(errs.Errors) {
	case 0:
		return nil
	case 1:
		return errs.Errors[0]
	default:
		return &multierror.Error{Errors: errs.Errors}
	}
}
