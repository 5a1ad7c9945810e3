package rpcware

import "errors"

var (
	// ErrMissingEndpoint is returned by Dial when no endpoint is configured.
	ErrMissingEndpoint = errors.New("rpcware: missing endpoint")

	// ErrUnsupportedScheme is returned by Dial for endpoints that are neither
	// http(s) nor ws(s).
	ErrUnsupportedScheme = errors.New("rpcware: unsupported endpoint scheme")
)
