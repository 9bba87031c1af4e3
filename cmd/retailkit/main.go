// Command retailkit generates a synthetic retail dataset and runs the
// analytics recipes over it.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/retailkit/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
