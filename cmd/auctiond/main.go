package main

import (
	"os"

	"github.com/procurehub/auctiond/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
