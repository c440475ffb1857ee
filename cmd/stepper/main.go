// Command stepper runs step groups declared in stepper.toml against one or
// more execution contexts.
package main

import (
	"os"

	"github.com/AbdelazizMoustafa10m/stepper/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
