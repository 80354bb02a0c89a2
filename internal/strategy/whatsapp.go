package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/insider-one/notification-dispatcher/internal/config"
	"github.com/insider-one/notification-dispatcher/internal/domain"
)

const whatsAppAddressPrefix = "whatsapp:"

// WhatsAppStrategy delivers notifications over WhatsApp. With a template id
// configured it sends the provider's pre-approved template; otherwise it
// sends free text, which providers only accept inside an open session.
type WhatsAppStrategy struct {
	client     domain.MessagingClient
	from       string
	templateID string
	variables  map[string]*domain.Template
	logger     *slog.Logger
}

// NewWhatsAppStrategy creates a new WhatsAppStrategy
func NewWhatsAppStrategy(client domain.MessagingClient, cfg config.WhatsAppConfig, logger *slog.Logger) *WhatsAppStrategy {
	variables := make(map[string]*domain.Template, len(cfg.TemplateVariables))
	for position, content := range cfg.TemplateVariables {
		variables[position] = domain.NewTemplate("whatsapp_"+position, content)
	}

	return &WhatsAppStrategy{
		client:     client,
		from:       whatsAppAddress(cfg.From),
		templateID: cfg.TemplateID,
		variables:  variables,
		logger:     logger,
	}
}

func (s *WhatsAppStrategy) Channel() domain.Channel { return domain.ChannelWhatsApp }

// Send builds either a templated or a free text message
func (s *WhatsAppStrategy) Send(ctx context.Context, req *domain.NotificationRequest) domain.NotificationResult {
	phone, err := NormalizePhone(req.Recipient)
	if err != nil {
		return domain.Failed(domain.ChannelWhatsApp, err.Error())
	}

	msg := &domain.MessageRequest{
		To:   whatsAppAddress(phone),
		From: s.from,
	}

	if s.templateID != "" {
		vars, err := s.renderVariables(req)
		if err != nil {
			return domain.Failed(domain.ChannelWhatsApp, err.Error())
		}
		msg.TemplateID = s.templateID
		msg.TemplateVariables = vars
	} else {
		msg.Body = fmt.Sprintf("*%s*\n%s", req.Subject, req.Body)
	}

	resp, err := s.client.SendMessage(ctx, msg)
	if err != nil {
		return providerFailure(ctx, s.logger, domain.ChannelWhatsApp, err)
	}
	if resp == nil {
		return domain.Succeeded(domain.ChannelWhatsApp, "", nil)
	}

	return domain.Succeeded(domain.ChannelWhatsApp, resp.MessageID, statusMetadata(resp.Status))
}

// renderVariables fills every template position from the request
func (s *WhatsAppStrategy) renderVariables(req *domain.NotificationRequest) (map[string]string, error) {
	vars := domain.TemplateVars(req)
	rendered := make(map[string]string, len(s.variables))
	var missing []string

	for position, tmpl := range s.variables {
		if m := tmpl.Validate(vars); len(m) > 0 {
			missing = append(missing, m...)
			continue
		}
		rendered[position] = tmpl.Render(vars)
	}

	if len(missing) > 0 {
		slices.Sort(missing)
		missing = slices.Compact(missing)
		return nil, fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}
	return rendered, nil
}

func whatsAppAddress(number string) string {
	if number == "" || strings.HasPrefix(number, whatsAppAddressPrefix) {
		return number
	}
	return whatsAppAddressPrefix + number
}
