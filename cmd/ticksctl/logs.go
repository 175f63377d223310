package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const followPollInterval = 250 * time.Millisecond

// openLogInput opens the named log file, or stdin for "" or "-".
func openLogInput(name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

// colorizeLogs renders each JSON log line from r onto w in human-readable
// form.  With follow, it keeps polling r for new lines after EOF until ctx
// is cancelled.
func colorizeLogs(ctx context.Context, r io.Reader, w io.Writer, noColor bool, follow bool) error {
	console := zerolog.ConsoleWriter{Out: w, NoColor: noColor}
	br := bufio.NewReader(r)

	var partial []byte
	for {
		chunk, err := br.ReadBytes('\n')
		partial = append(partial, chunk...)
		if err == nil {
			if _, err := console.Write(partial); err != nil {
				return err
			}
			partial = partial[:0]
			continue
		}
		if !errors.Is(err, io.EOF) {
			return err
		}

		if !follow {
			if len(partial) == 0 {
				return nil
			}
			_, err = console.Write(partial)
			return err
		}

		t := time.NewTimer(followPollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}
