package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/mr1hm/go-weather-alerts/internal/logging"
)

func main() {
	_ = godotenv.Load()
	logging.Setup("error")

	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		logging.Fatalf("alert-check: %v", err)
	}
}
