package main

import (
	"context"
	"os"

	"github.com/cwrk-planet/tempvoice/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
