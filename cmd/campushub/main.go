package main

import (
	"os"

	"github.com/nhle/campushub/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
