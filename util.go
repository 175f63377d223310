package main

import (
	"net"
	"net/http"
)

func simplifyHTTPMethod(str string) string {
	switch str {
	case http.MethodOptions:
		return http.MethodOptions
	case http.MethodGet:
		return http.MethodGet
	case http.MethodHead:
		return http.MethodHead
	default:
		return "OTHER"
	}
}

func simplifyHTTPStatusCode(statusCode int) string {
	switch statusCode {
	case 0, 200:
		return "200"
	case 101:
		return "101"
	case 400:
		return "400"
	case 404:
		return "404"
	case 405:
		return "405"
	case 500:
		return "500"
	case 503:
		return "503"
	}

	switch {
	case statusCode < 200:
		return "1xx"
	case statusCode < 300:
		return "2xx"
	case statusCode < 400:
		return "3xx"
	case statusCode < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func addrWithNoPort(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	switch x := addr.(type) {
	case *net.TCPAddr:
		return x.IP.String()
	case *net.UDPAddr:
		return x.IP.String()
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			return addr.String()
		}
		return host
	}
}
