package wsutil

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gorilla/websocket"
)

// CloseError represents a WebSocket connection close event.
type CloseError struct {
	Code uint16
	Text string
}

// CloseErrorFromBytes parses a CloseError from the payload bytes of a
// WebSocket CLOSE control message.
func CloseErrorFromBytes(p []byte) CloseError {
	err := CloseError{Code: websocket.CloseNoStatusReceived}
	if len(p) >= 2 {
		err.Code = binary.BigEndian.Uint16(p[0:2])
		err.Text = string(p[2:])
	}
	return err
}

// AsCloseError converts the errors returned by gorilla/websocket into a
// CloseError, if they represent a close event.  io.EOF is a normal closure.
func AsCloseError(err error) (CloseError, bool) {
	if err == nil {
		return CloseError{}, false
	}

	var err0 CloseError
	if errors.As(err, &err0) {
		return err0, true
	}

	var err1 *websocket.CloseError
	if errors.As(err, &err1) {
		return CloseError{Code: uint16(err1.Code), Text: err1.Text}, true
	}

	if errors.Is(err, io.EOF) {
		return CloseError{Code: websocket.CloseNormalClosure}, true
	}

	return CloseError{}, false
}

// IsNormal returns true if this close needs no further reporting: a normal
// closure, or the peer going away.
func (err CloseError) IsNormal() bool {
	switch err.Code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway:
		return true
	default:
		return false
	}
}

// Error fulfills the error interface.
func (err CloseError) Error() string {
	code := fmt.Sprintf("%04d", err.Code)
	text := err.Text
	if text == "" {
		text = closeErrorDefaultText[err.Code]
	}
	var buf strings.Builder
	buf.Grow(22 + len(text))
	buf.WriteString("WebSocket close error ")
	buf.WriteString(code)
	if text != "" {
		buf.WriteString(": ")
		buf.WriteString(text)
	}
	return buf.String()
}

// AsBytes renders this CloseError as bytes suitable for a CLOSE control
// message's payload.
func (err CloseError) AsBytes() []byte {
	p := make([]byte, 2, 2+len(err.Text))
	binary.BigEndian.PutUint16(p, err.Code)
	p = append(p, []byte(err.Text)...)
	return p
}

var _ error = CloseError{}

var closeErrorDefaultText = map[uint16]string{
	websocket.CloseNormalClosure:           "goodbye",
	websocket.CloseGoingAway:               "going away",
	websocket.CloseProtocolError:           "protocol error",
	websocket.CloseUnsupportedData:         "unsupported data",
	websocket.CloseNoStatusReceived:        "no status received",
	websocket.CloseAbnormalClosure:         "abnormal close",
	websocket.CloseInvalidFramePayloadData: "invalid frame payload data",
	websocket.ClosePolicyViolation:         "policy violation",
	websocket.CloseMessageTooBig:           "message too big",
	websocket.CloseMandatoryExtension:      "missing a mandatory extension",
	websocket.CloseInternalServerErr:       "internal server error",
	websocket.CloseServiceRestart:          "service is restarting",
	websocket.CloseTryAgainLater:           "try again later",
	websocket.CloseTLSHandshake:            "TLS handshake error",
}
