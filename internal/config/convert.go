package config

import (
	"github.com/danmuck/farectl/internal/formats/ezlink"
	"github.com/danmuck/farectl/internal/transport/remote"
)

func (c Config) DialOptions() remote.DialOptions {
	return remote.DialOptions{
		Timeout:         c.Reader.DialTimeout,
		Reader:          c.Reader.Name,
		Token:           c.Reader.Token,
		TLS:             c.Reader.TLS,
		ConnectAttempts: c.Reader.ConnectAttempts,
		Backoff:         remote.DefaultBackoff(),
	}
}

// LoadRoutes returns the configured route table, or the embedded one
// when no path is set.
func (c Config) LoadRoutes() (*ezlink.Routes, error) {
	if c.Routes.Path == "" {
		return ezlink.DefaultRoutes(), nil
	}
	return ezlink.LoadRoutesFile(c.Routes.Path)
}
