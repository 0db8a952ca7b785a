package payload

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"pushhook/internal/platform/models"
)

const (
	IconPath     = "/image/notification_logo_1.png"
	DashboardURL = "/dashboard"

	DefaultSaleTitle = "🤑 Venda Aprovada!"
	DefaultValueMax  = 64
)

type Data struct {
	URL string `json:"url"`
}

// Message is the JSON document delivered to the service worker.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Badge string `json:"badge"`
	Data  Data   `json:"data"`
}

func (m Message) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Config is the per-endpoint part of the input.
type Config struct {
	Title          string
	GenericTitle   string
	GenericBody    string
	ValueMaxLength int
}

// ConfigFor derives the builder config from a stored endpoint.
func ConfigFor(endpoint *models.Endpoint, valueMaxLength int) Config {
	cfg := Config{ValueMaxLength: valueMaxLength}
	if endpoint.GenericTitle != nil {
		cfg.GenericTitle = *endpoint.GenericTitle
	}
	if endpoint.GenericBody != nil {
		cfg.GenericBody = *endpoint.GenericBody
	}
	if endpoint.Type == models.EndpointSaleApproved {
		cfg.Title = cfg.GenericTitle
	}
	return cfg
}

// Trigger is what the webhook caller sent: the decoded JSON body (may be nil) and the query
// parameters other than token.
type Trigger struct {
	Body  map[string]interface{}
	Query map[string]string
}

// Build never fails; missing fields fall back to fixed texts.
func Build(typ models.EndpointType, cfg Config, trig Trigger) Message {
	var title, body string

	switch typ {
	case models.EndpointDisconnected:
		name := field(trig.Body, "instance_name")
		if field(trig.Body, "event") == "disconnected" && name != "" {
			number := field(trig.Body, "instance_number")
			if number == "" {
				number = "desconhecido"
			}
			title = fmt.Sprintf("🚨 Atenção! %s desconectou!", name)
			body = fmt.Sprintf("O número %s precisa de atenção", number)
		} else {
			title = "🚨 Atenção! Instância desconectou!"
			body = "Abra o painel para ver detalhes."
		}

	case models.EndpointSaleApproved:
		title = cfg.Title
		if title == "" {
			title = DefaultSaleTitle
		}
		valor := sanitizeValue(trig.Query["valor"], cfg.ValueMaxLength)
		if valor == "" {
			valor = "(não informado)"
		}
		body = "Valor: " + valor

	case models.EndpointGeneric:
		title = cfg.GenericTitle
		if title == "" {
			title = "📨 Nova Notificação"
		}
		body = cfg.GenericBody
		if body == "" {
			body = "Você recebeu uma nova notificação."
		}

	default:
		title = "🔔 Notificação"
		body = "Você recebeu uma nova notificação."
	}

	return Message{
		Title: title,
		Body:  body,
		Icon:  IconPath,
		Badge: IconPath,
		Data:  Data{URL: DashboardURL},
	}
}

// VerifyMessage is the silent check body sent by the verification sweep.
func VerifyMessage() []byte {
	return []byte(`{"type":"verify"}`)
}

// field renders a scalar body value as text. Objects, arrays, false and null count as absent.
func field(body map[string]interface{}, key string) string {
	v, ok := body[key]
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return fmt.Sprint(val)
	case bool:
		if val {
			return "true"
		}
	}
	return ""
}

// sanitizeValue trims, drops control characters and caps the length in runes.
func sanitizeValue(s string, max int) string {
	if max <= 0 {
		max = DefaultValueMax
	}

	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) > max {
		s = strings.TrimSpace(string(runes[:max]))
	}
	return s
}
