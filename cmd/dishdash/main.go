// Command dishdash is a terminal client for the DishDash marketplace.
package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, pterm.Error.Sprint(err))
		os.Exit(1)
	}
}
