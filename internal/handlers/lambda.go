package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/linkupapp/linkup/internal/observability"
	"github.com/linkupapp/linkup/internal/stripe"
	"github.com/linkupapp/linkup/internal/webhook"
)

// LambdaHandler adapts the engine to API Gateway HTTP API invocations. It
// applies the same body limit and status mapping as StripeWebhook.
func LambdaHandler(engine WebhookProcessor, logger *slog.Logger) func(context.Context, events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "lambda")

	return func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		ctx = observability.WithMeter(ctx, nil)
		payload := []byte(req.Body)
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				logger.Warn("failed to decode webhook body", "error", err)
				return textResponse(http.StatusBadRequest, "Invalid webhook"), nil
			}
			payload = decoded
		}
		if len(payload) > maxWebhookBodyBytes {
			logger.Warn("Stripe webhook payload too large", "limit", maxWebhookBodyBytes)
			return textResponse(http.StatusRequestEntityTooLarge, "Payload too large"), nil
		}

		outcome, err := engine.Process(ctx, payload, headerValue(req.Headers, stripe.SignatureHeader))
		switch status := webhook.StatusCode(err); status {
		case http.StatusOK:
		case http.StatusBadRequest:
			return textResponse(status, "Invalid webhook"), nil
		default:
			return textResponse(status, "Processing failed"), nil
		}

		body, err := json.Marshal(map[string]string{"outcome": outcome.String()})
		if err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusOK,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       string(body),
		}, nil
	}
}

// API Gateway lowercases header names for HTTP APIs but not for every
// integration, so the lookup is case-insensitive.
func headerValue(headers map[string]string, name string) string {
	if value, ok := headers[strings.ToLower(name)]; ok {
		return value
	}
	for key, value := range headers {
		if strings.EqualFold(key, name) {
			return value
		}
	}
	return ""
}

func textResponse(status int, body string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
		Body:       body,
	}
}
