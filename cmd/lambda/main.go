package main

// Command lambda serves the Stripe webhook endpoint behind API Gateway.

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/linkupapp/linkup/app"
	"github.com/linkupapp/linkup/internal/handlers"
)

func main() {
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	application, err := app.New()
	if err != nil {
		fallbackLogger.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	lambda.Start(handlers.LambdaHandler(application.Engine, application.Logger))
}
