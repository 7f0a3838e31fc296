package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ben-ranford/linkpreload/internal/app"
)

// errorLabel is bold red on a terminal and plain text otherwise.
var errorLabel = color.New(color.FgRed, color.Bold)

type Runner interface {
	Execute(ctx context.Context, req app.Request) (string, error)
}

type CLI struct {
	Runner Runner
	Out    io.Writer
	Err    io.Writer
}

func New(runner Runner, out io.Writer, errOut io.Writer) *CLI {
	return &CLI{
		Runner: runner,
		Out:    out,
		Err:    errOut,
	}
}

// Run executes args and returns the process exit code: 0 on success (including
// nothing to preload), 2 on usage errors and 1 on any other failure.
func (c *CLI) Run(ctx context.Context, args []string) int {
	req, err := ParseArgs(args)
	if err != nil {
		if errors.Is(err, ErrHelpRequested) {
			if _, writeErr := fmt.Fprint(c.Out, Usage()); writeErr != nil {
				return 1
			}
			return 0
		}
		c.printError(err)
		fmt.Fprintln(c.Err)
		fmt.Fprint(c.Err, Usage())
		return 2
	}

	output, runErr := c.Runner.Execute(ctx, req)
	if output != "" {
		if !strings.HasSuffix(output, "\n") {
			output += "\n"
		}
		if _, writeErr := fmt.Fprint(c.Out, output); writeErr != nil {
			c.printError(fmt.Errorf("write output: %w", writeErr))
			return 1
		}
	}

	if runErr != nil {
		c.printError(runErr)
		return 1
	}

	return 0
}

func (c *CLI) printError(err error) {
	errorLabel.Fprint(c.Err, "error:")
	fmt.Fprintf(c.Err, " %v\n", err)
}
