// Package secrets supplies the webhook signing secret to the engine.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/linkupapp/linkup/internal/crypto"
)

var ErrUnavailable = errors.New("webhook secret unavailable")

// Source returns the current signing secret.
type Source interface {
	Secret(ctx context.Context) (string, error)
}

// Static serves a secret read from the environment.
type Static string

func (s Static) Secret(context.Context) (string, error) {
	secret := strings.TrimSpace(string(s))
	if secret == "" {
		return "", ErrUnavailable
	}
	return secret, nil
}

// Encrypted opens a sealed secret on demand.
type Encrypted struct {
	Sealed string
	Sealer *crypto.Sealer
}

func (e Encrypted) Secret(context.Context) (string, error) {
	if e.Sealer == nil || strings.TrimSpace(e.Sealed) == "" {
		return "", ErrUnavailable
	}
	secret, err := e.Sealer.Open(strings.TrimSpace(e.Sealed))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if secret == "" {
		return "", ErrUnavailable
	}
	return secret, nil
}

// Cached loads the secret from its source on first use and keeps it for the
// life of the process. Failed loads are not cached.
type Cached struct {
	source Source

	mu     sync.Mutex
	secret string
}

func NewCached(source Source) *Cached {
	return &Cached{source: source}
}

func (c *Cached) Secret(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.secret != "" {
		return c.secret, nil
	}
	if c.source == nil {
		return "", ErrUnavailable
	}

	secret, err := c.source.Secret(ctx)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if secret == "" {
		return "", ErrUnavailable
	}
	c.secret = secret
	return secret, nil
}
