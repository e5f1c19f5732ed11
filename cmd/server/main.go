package main

import (
	"context"
	"log"

	"github.com/npremz/astrobackoffice/internal/logging"
	"github.com/npremz/astrobackoffice/internal/server"
	"github.com/npremz/astrobackoffice/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewJSONLogger(!cfg.IsProduction())

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "shutdown error", "error", err)
	}

}
