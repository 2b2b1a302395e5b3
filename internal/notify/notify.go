// Package notify renders in-app notification copy and builds the rows the
// webhook handlers insert into the shared notifications table.
package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/linkupapp/linkup/internal/models"
)

//go:embed templates.yaml
var templatesYAML []byte

// Data is the value templates are executed against. Unused fields are left
// empty.
type Data struct {
	Name   string
	Amount string
	Reason string
	Count  int
	Date   time.Time
}

type templateSource struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// Renderer holds the parsed notification templates.
type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	return parseRenderer(templatesYAML)
}

func parseRenderer(source []byte) (*Renderer, error) {
	var sources map[string]templateSource
	if err := yaml.Unmarshal(source, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse notification templates: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no notification templates defined")
	}

	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("January 2, 2006")
		},
	}
	tmpl := template.New("notifications").Funcs(funcMap)

	for name, src := range sources {
		if strings.TrimSpace(src.Title) == "" || strings.TrimSpace(src.Body) == "" {
			return nil, fmt.Errorf("notification template %s needs a title and a body", name)
		}
		if _, err := tmpl.New(name + ".title").Parse(src.Title); err != nil {
			return nil, fmt.Errorf("failed to parse title template %s: %w", name, err)
		}
		if _, err := tmpl.New(name + ".body").Parse(src.Body); err != nil {
			return nil, fmt.Errorf("failed to parse body template %s: %w", name, err)
		}
	}

	return &Renderer{templates: tmpl}, nil
}

// Render returns the title and body of the named template.
func (r *Renderer) Render(name string, data Data) (string, string, error) {
	var title, body bytes.Buffer
	if err := r.templates.ExecuteTemplate(&title, name+".title", data); err != nil {
		return "", "", fmt.Errorf("failed to render notification title %s: %w", name, err)
	}
	if err := r.templates.ExecuteTemplate(&body, name+".body", data); err != nil {
		return "", "", fmt.Errorf("failed to render notification body %s: %w", name, err)
	}
	return title.String(), body.String(), nil
}

// Message describes one notification before rendering.
type Message struct {
	EventID    string
	Kind       models.NotificationKind
	Template   string
	Recipient  uuid.UUID
	Actor      uuid.UUID
	EntityType string
	EntityID   string
	Data       Data
}

// Build renders msg into a notifications row. The template defaults to the
// kind's name.
func (r *Renderer) Build(msg Message) (*models.Notification, error) {
	if msg.Recipient == uuid.Nil {
		return nil, fmt.Errorf("notification recipient is required")
	}
	name := msg.Template
	if name == "" {
		name = string(msg.Kind)
	}

	title, body, err := r.Render(name, msg.Data)
	if err != nil {
		return nil, err
	}

	return &models.Notification{
		RecipientProfileID: msg.Recipient,
		ActorProfileID:     uuid.NullUUID{UUID: msg.Actor, Valid: msg.Actor != uuid.Nil},
		Kind:               msg.Kind,
		Title:              title,
		Body:               body,
		EntityType:         msg.EntityType,
		EntityID:           msg.EntityID,
		DedupKey:           DedupKey(msg.EventID, msg.Kind, msg.Recipient),
	}, nil
}

// DedupKey identifies a notification so a replayed event cannot insert it
// twice.
func DedupKey(eventID string, kind models.NotificationKind, recipient uuid.UUID) string {
	return eventID + ":" + string(kind) + ":" + recipient.String()
}

// FormatAmount renders minor units in the given ISO currency, e.g. "$12.50"
// or "12.50 EUR". Zero-decimal currencies are printed without a fraction.
func FormatAmount(minor int64, currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if zeroDecimalCurrencies[currency] {
		return fmt.Sprintf("%d %s", minor, strings.ToUpper(currency))
	}

	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	digits := fmt.Sprintf("%d.%02d", minor/100, minor%100)
	if currency == "usd" || currency == "" {
		return sign + "$" + digits
	}
	return sign + digits + " " + strings.ToUpper(currency)
}

var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}
