package main

import (
	"os"

	"github.com/lazypower/graphwalk/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
