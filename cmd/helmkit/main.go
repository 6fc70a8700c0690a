// Command helmkit is the HELM notation command line tool.
package main

import (
	"os"

	"github.com/turtacn/helmkit/internal/interfaces/cli"
)

func main() {
	os.Exit(cli.Execute())
}
