package main

import (
	"context"
	"fmt"
	"os"

	"weekplan/internal/bootstrap"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	sink := newConsoleSink(os.Stderr)

	services, err := bootstrap.Build(context.Background(), sink)
	if err != nil {
		fmt.Fprintln(os.Stderr, "weekplan:", err)
		os.Exit(1)
	}
	defer services.DB.Close()

	app := newCLIApp(services, sink)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "weekplan:", err)
		os.Exit(1)
	}
}
