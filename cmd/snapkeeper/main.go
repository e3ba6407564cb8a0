package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/snapkeeper/internal/buildinfo"
	"github.com/dmitrijs2005/snapkeeper/internal/client/app"
	"github.com/dmitrijs2005/snapkeeper/internal/client/config"
	"github.com/dmitrijs2005/snapkeeper/internal/flagx"
)

func main() {

	cmd, args := flagx.Subcommand(os.Args[1:])

	switch cmd {
	case "", "drain":
	case "version":
		buildinfo.PrintBuildData(os.Stdout)
		return
	default:
		log.Fatalf("unknown command %q (want drain or version)", cmd)
	}

	cfg, err := config.LoadConfig(args)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx := context.Background()
	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if cmd == "drain" {
		os.Exit(drain(ctx, a))
	}

	buildinfo.PrintBuildData(os.Stdout)
	a.Run(ctx)
}

func drain(ctx context.Context, a *app.App) int {
	defer a.Close()

	res, err := a.Drain(ctx)
	if err != nil {
		log.Printf("drain: %v", err)
		return 1
	}
	fmt.Printf("drained: %d done, %d dropped, %d failed\n", res.Done, res.Dropped, res.Failed)
	return 0
}
