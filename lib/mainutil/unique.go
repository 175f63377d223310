package mainutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/chronos-tachyon/ticks/lib/ticksutil"
)

var gUniqueFile string

// SetUniqueFile specifies the path to the state file where UniqueID is stored.
func SetUniqueFile(path string) error {
	abs, err := ticksutil.ExpandPath(path)
	if err != nil {
		return err
	}
	gUniqueFile = abs
	return nil
}

// UniqueID returns the ID that distinguishes this daemon instance from its
// peers in service discovery.  The ID is created on first use and persists
// across restarts.
//
// The program must call SetUniqueFile in main() before calling this function.
func UniqueID() (string, error) {
	if gUniqueFile == "" {
		return "", errors.New("must call mainutil.SetUniqueFile")
	}
	return readOrCreateUnique(gUniqueFile)
}

func readOrCreateUnique(file string) (string, error) {
	for {
		raw, err := os.ReadFile(file)
		if err == nil {
			unique := strings.Trim(string(raw), " \t\r\n")
			if unique != "" {
				return unique, nil
			}
			return "", ticksutil.BadPathError{Path: file, Err: ticksutil.ErrExpectNonEmpty}
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		if err := os.MkdirAll(filepath.Dir(file), 0777); err != nil {
			return "", err
		}

		unique := xid.New().String()

		f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		if _, err := f.Write([]byte(unique + "\n")); err != nil {
			_ = f.Close()
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return unique, nil
	}
}
