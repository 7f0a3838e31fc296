package cli

const usage = `Usage:
  linkpreload resolve <url> [--app PATH] [--import-map PATH] [--format list|link|json] [--config PATH]
  linkpreload serve [--app PATH] [--addr HOST:PORT] [--import-map PATH] [--config PATH]

Options:
  --app PATH               Application root (default: .)
  --import-map PATH        Import map JSON file, relative to the app root
  --format list|link|json  Output format for resolve (default: list)
  --addr HOST:PORT         Listen address for serve (default: 127.0.0.1:8080)
  --config PATH            Config file (default: discovered in the app root)
  -h, --help               Show this help text
`

func Usage() string {
	return usage
}
