package main

import (
	"fmt"
	"os"

	"github.com/docker/rangefetch/cmd/rangefetch/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
