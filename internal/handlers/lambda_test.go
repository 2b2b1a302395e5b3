package handlers

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/linkupapp/linkup/internal/webhook"
)

func TestLambdaHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		request       events.APIGatewayV2HTTPRequest
		err           error
		wantStatus    int
		wantPayload   string
		wantSignature string
		wantCalls     int
	}{
		{
			name: "plain body lowercase header",
			request: events.APIGatewayV2HTTPRequest{
				Body:    `{"id":"evt_1"}`,
				Headers: map[string]string{"stripe-signature": "t=1,v1=abc"},
			},
			wantStatus:    http.StatusOK,
			wantPayload:   `{"id":"evt_1"}`,
			wantSignature: "t=1,v1=abc",
			wantCalls:     1,
		},
		{
			name: "base64 body canonical header",
			request: events.APIGatewayV2HTTPRequest{
				Body:            base64.StdEncoding.EncodeToString([]byte(`{"id":"evt_2"}`)),
				IsBase64Encoded: true,
				Headers:         map[string]string{"Stripe-Signature": "t=2,v1=def"},
			},
			wantStatus:    http.StatusOK,
			wantPayload:   `{"id":"evt_2"}`,
			wantSignature: "t=2,v1=def",
			wantCalls:     1,
		},
		{
			name: "invalid base64",
			request: events.APIGatewayV2HTTPRequest{
				Body:            "%%%",
				IsBase64Encoded: true,
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "oversized body",
			request:    events.APIGatewayV2HTTPRequest{Body: strings.Repeat("a", maxWebhookBodyBytes+1)},
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "bad signature",
			request:    events.APIGatewayV2HTTPRequest{Body: "{}"},
			err:        webhook.ErrInvalidSignature,
			wantStatus: http.StatusBadRequest,
			wantCalls:  1,
		},
		{
			name:       "handler failure",
			request:    events.APIGatewayV2HTTPRequest{Body: "{}"},
			err:        webhook.ErrHandlerFailed,
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := &fakeProcessor{outcome: webhook.OutcomeProcessed, err: tt.err}
			handle := LambdaHandler(engine, nil)

			resp, err := handle(context.Background(), tt.request)
			if err != nil {
				t.Fatalf("handle() error = %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if engine.calls != tt.wantCalls {
				t.Fatalf("engine calls = %d, want %d", engine.calls, tt.wantCalls)
			}
			if tt.wantCalls == 0 {
				return
			}
			if tt.wantPayload != "" && string(engine.payload) != tt.wantPayload {
				t.Fatalf("payload = %q, want %q", engine.payload, tt.wantPayload)
			}
			if engine.signature != tt.wantSignature {
				t.Fatalf("signature = %q, want %q", engine.signature, tt.wantSignature)
			}
			if tt.wantStatus == http.StatusOK && resp.Body != `{"outcome":"processed"}` {
				t.Fatalf("body = %q", resp.Body)
			}
		})
	}
}
