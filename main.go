package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/harrisonrobin/hunt/pkg/cli"
	"github.com/harrisonrobin/hunt/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.NewApp(cfg).Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
