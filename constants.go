package main

const (
	headerContentType = "Content-Type"
	headerServer      = "Server"
	headerUserAgent   = "User-Agent"
	headerXID         = "Xid"
	headerXCTO        = "X-Content-Type-Options"
	headerAllow       = "Allow"

	contentTypeJSON = "application/json; charset=utf-8"

	pathStatus       = "/status"
	pathStatusPrefix = "/status/"
	pathStream       = "/ws"
)
