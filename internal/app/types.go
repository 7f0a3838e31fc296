package app

import (
	"github.com/ben-ranford/linkpreload/internal/config"
	"github.com/ben-ranford/linkpreload/internal/report"
)

type Mode string

const (
	ModeResolve Mode = "resolve"
	ModeServe   Mode = "serve"

	DefaultAddr = "127.0.0.1:8080"
)

type Request struct {
	Mode    Mode
	AppPath string
	// ConfigPath is an explicit config file; empty means discovery in the app root.
	ConfigPath string
	// Overrides come from command line flags and win over the config file.
	Overrides config.Overrides
	Resolve   ResolveRequest
	Serve     ServeRequest
}

type ResolveRequest struct {
	URL    string
	Format report.Format
}

type ServeRequest struct {
	Addr string
}

func DefaultRequest() Request {
	return Request{
		Mode:    ModeResolve,
		AppPath: ".",
		Resolve: ResolveRequest{
			Format: report.FormatList,
		},
		Serve: ServeRequest{
			Addr: DefaultAddr,
		},
	}
}
