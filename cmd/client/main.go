package main

import (
	"context"
	"log"
	"os"

	"github.com/avoskres/loankeeper/internal/buildinfo"
	"github.com/avoskres/loankeeper/internal/client/cli"
	"github.com/avoskres/loankeeper/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
