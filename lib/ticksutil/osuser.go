package ticksutil

import (
	"os/user"
	"path/filepath"
)

// LookupUserByName is a wrapper around "os/user".Lookup.  The empty name
// means the current user.
func LookupUserByName(userName string) (*user.User, error) {
	var u *user.User
	var err error
	if userName == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(userName)
	}
	if _, ok := err.(user.UnknownUserError); ok {
		err = ErrNotExist
	}
	if err != nil {
		return nil, LookupUserByNameError{Name: userName, Err: err}
	}
	return u, nil
}

// PathAbs is a wrapper around "path/filepath".Abs.
func PathAbs(str string) (string, error) {
	abs, err := filepath.Abs(str)
	if err != nil {
		return "", PathAbsError{Path: str, Err: err}
	}
	return abs, nil
}
