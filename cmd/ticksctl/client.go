package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chronos-tachyon/ticks/internal/constants"
	"github.com/chronos-tachyon/ticks/internal/wsutil"
	"github.com/chronos-tachyon/ticks/lib/ticks"
)

// type StatusError {{{

// StatusError is returned when the daemon answers with a non-200 status.
type StatusError struct {
	Code int    `json:"status"`
	Text string `json:"error"`
}

func (err StatusError) Error() string {
	return fmt.Sprintf("HTTP %03d: %s", err.Code, err.Text)
}

var _ error = StatusError{}

// }}}

type statusClient struct {
	base   url.URL
	client *http.Client
}

func newStatusClient(server string, client *http.Client) (*statusClient, error) {
	if !strings.Contains(server, "://") {
		server = constants.SchemeHTTP + "://" + server
	}

	u, err := url.Parse(server)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case constants.SchemeHTTP, constants.SchemeHTTPS:
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", server)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	if client == nil {
		client = http.DefaultClient
	}
	return &statusClient{base: *u, client: client}, nil
}

func (c *statusClient) statusURL(name string) string {
	u := c.base
	if name == "" {
		u.Path += "/status"
	} else {
		u.Path += "/status/" + name
	}
	return u.String()
}

func (c *statusClient) streamURL() string {
	u := c.base
	if u.Scheme == constants.SchemeHTTPS {
		u.Scheme = "wss"
	} else {
		u.Scheme = constants.SchemeWS
	}
	u.Path += "/ws"
	return u.String()
}

// Status fetches every tracker, or only the named one.
func (c *statusClient) Status(ctx context.Context, name string) ([]ticks.NamedData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.statusURL(name), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	d := json.NewDecoder(resp.Body)
	if resp.StatusCode != http.StatusOK {
		statusErr := StatusError{Code: resp.StatusCode, Text: http.StatusText(resp.StatusCode)}
		_ = d.Decode(&statusErr)
		statusErr.Code = resp.StatusCode
		return nil, statusErr
	}

	if name != "" {
		var one ticks.NamedData
		if err := d.Decode(&one); err != nil {
			return nil, err
		}
		return []ticks.NamedData{one}, nil
	}

	var list []ticks.NamedData
	if err := d.Decode(&list); err != nil {
		return nil, err
	}
	return list, nil
}

// Watch subscribes to the status stream and calls fn once per frame.  It
// returns after count frames, or when ctx is cancelled if count is 0.
func (c *statusClient) Watch(ctx context.Context, count uint64, fn func(ticks.Frame)) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.streamURL(), nil)
	if err != nil {
		if resp != nil {
			return StatusError{Code: resp.StatusCode, Text: http.StatusText(resp.StatusCode)}
		}
		return err
	}

	var seen uint64
	onText := func(ctx context.Context, looper *wsutil.Looper, text string) {
		var frame ticks.Frame
		if err := json.Unmarshal([]byte(text), &frame); err != nil {
			zerolog.Ctx(ctx).Warn().
				Err(err).
				Msg("failed to decode frame")
			go looper.SendClose(websocket.CloseInvalidFramePayloadData, "bad frame")
			return
		}
		n := atomic.AddUint64(&seen, 1)
		if count != 0 && n > count {
			return
		}
		fn(frame)
		if n == count {
			go looper.SendClose(websocket.CloseNormalClosure, "done")
		}
	}

	looper := wsutil.NewLooper(ctx, conn, wsutil.OnText(onText))
	select {
	case <-ctx.Done():
		looper.SendClose(websocket.CloseNormalClosure, "interrupted")
	case <-looper.Done():
	}
	return looper.Wait()
}
