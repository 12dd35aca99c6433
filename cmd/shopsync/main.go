package main

import (
	"os"

	"github.com/roach88/shopsync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
