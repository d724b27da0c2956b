package main

import (
	"os"

	"klinedash/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
