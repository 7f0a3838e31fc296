package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/ben-ranford/linkpreload/internal/app"
	"github.com/ben-ranford/linkpreload/internal/config"
	"github.com/ben-ranford/linkpreload/internal/report"
)

var (
	ErrHelpRequested = errors.New("help requested")
	ErrMissingURL    = errors.New("missing module url for resolve")
)

func ParseArgs(args []string) (app.Request, error) {
	req := app.DefaultRequest()
	if len(args) == 0 {
		return req, ErrHelpRequested
	}

	if isHelpArg(args[0]) {
		return req, ErrHelpRequested
	}

	switch args[0] {
	case "resolve":
		return parseResolve(args[1:], req)
	case "serve":
		return parseServe(args[1:], req)
	default:
		return req, fmt.Errorf("unknown command: %s", args[0])
	}
}

// commonFlags are shared by every command.
type commonFlags struct {
	appPath    *string
	importMap  *string
	configPath *string
}

func registerCommonFlags(fs *flag.FlagSet, req app.Request) commonFlags {
	return commonFlags{
		appPath:    fs.String("app", req.AppPath, "application root"),
		importMap:  fs.String("import-map", "", "import map file"),
		configPath: fs.String("config", req.ConfigPath, "config file path"),
	}
}

func (c commonFlags) apply(fs *flag.FlagSet, req app.Request) app.Request {
	visited := visitedFlags(fs)
	req.AppPath = strings.TrimSpace(*c.appPath)
	req.ConfigPath = strings.TrimSpace(*c.configPath)
	req.Overrides = config.Overrides{}
	if visited["import-map"] {
		importMap := strings.TrimSpace(*c.importMap)
		req.Overrides.ImportMapPath = &importMap
	}
	return req
}

func parseResolve(args []string, req app.Request) (app.Request, error) {
	args = normalizeArgs(args)

	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	common := registerCommonFlags(fs, req)
	formatFlag := fs.String("format", string(req.Resolve.Format), "output format")

	if err := parseFlags(fs, args); err != nil {
		return req, err
	}

	format, err := report.ParseFormat(*formatFlag)
	if err != nil {
		return req, err
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		return req, ErrMissingURL
	}
	if len(remaining) > 1 {
		return req, fmt.Errorf("too many arguments for resolve")
	}
	url := strings.TrimSpace(remaining[0])
	if url == "" {
		return req, ErrMissingURL
	}

	req = common.apply(fs, req)
	req.Mode = app.ModeResolve
	req.Resolve = app.ResolveRequest{
		URL:    url,
		Format: format,
	}
	return req, nil
}

func parseServe(args []string, req app.Request) (app.Request, error) {
	args = normalizeArgs(args)

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	common := registerCommonFlags(fs, req)
	addr := fs.String("addr", req.Serve.Addr, "listen address")

	if err := parseFlags(fs, args); err != nil {
		return req, err
	}
	if fs.NArg() > 0 {
		return req, fmt.Errorf("unexpected arguments for serve")
	}
	if strings.TrimSpace(*addr) == "" {
		return req, fmt.Errorf("--addr must not be empty")
	}

	req = common.apply(fs, req)
	req.Mode = app.ModeServe
	req.Serve = app.ServeRequest{Addr: strings.TrimSpace(*addr)}
	return req, nil
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ErrHelpRequested
		}
		return err
	}
	return nil
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	default:
		return false
	}
}

// normalizeArgs moves positionals after flags so that "resolve /a.mjs --app x"
// parses like "resolve --app x /a.mjs".
func normalizeArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	flags := make([]string, 0, len(args))
	positionals := make([]string, 0, 1)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			positionals = append(positionals, args[i+1:]...)
			break
		}
		if strings.HasPrefix(arg, "-") {
			flags = append(flags, arg)
			if flagNeedsValue(arg) && i+1 < len(args) {
				flags = append(flags, args[i+1])
				i++
			}
			continue
		}
		positionals = append(positionals, arg)
	}

	if len(positionals) == 0 {
		return flags
	}
	flags = append(flags, "--")
	return append(flags, positionals...)
}

func flagNeedsValue(arg string) bool {
	if strings.Contains(arg, "=") {
		return false
	}
	switch strings.TrimLeft(arg, "-") {
	case "app", "import-map", "format", "addr", "config":
		return true
	default:
		return false
	}
}

func visitedFlags(fs *flag.FlagSet) map[string]bool {
	visited := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})
	return visited
}
