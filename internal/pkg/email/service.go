package email

import (
	"bytes"
	"context"
	"html/template"
	"sync"

	"github.com/rs/zerolog/log"
)

// Service handles email sending with templates. Delivery is asynchronous and
// best-effort: failures are logged, never returned to the caller.
type Service struct {
	client       *SendGridClient
	templates    map[string]*template.Template
	baseTemplate *template.Template
	frontendURL  string
	queue        chan *QueuedEmail
	wg           sync.WaitGroup
}

// QueuedEmail represents an email in the send queue
type QueuedEmail struct {
	To           string
	ToName       string
	Subject      string
	TemplateName string
	Data         interface{}
}

// NewService creates email service
func NewService(config SendGridConfig, frontendURL string) *Service {
	s := &Service{
		client:      NewSendGridClient(config),
		templates:   make(map[string]*template.Template),
		frontendURL: frontendURL,
		queue:       make(chan *QueuedEmail, 100),
	}

	s.baseTemplate, _ = template.New("base").Parse(BaseTemplate)
	s.loadTemplates()

	// Start async worker
	s.wg.Add(1)
	go s.worker()

	return s
}

// loadTemplates loads all email templates
func (s *Service) loadTemplates() {
	templates := map[string]string{
		"role_changed":       RoleChangedTemplate,
		"principal_promoted": PrincipalPromotedTemplate,
		"welcome_admin":      WelcomeAdminTemplate,
	}

	for name, content := range templates {
		tmpl, err := template.New(name).Parse(content)
		if err != nil {
			log.Error().Err(err).Str("template", name).Msg("Failed to parse email template")
			continue
		}
		s.templates[name] = tmpl
	}
}

// worker processes queued emails asynchronously
func (s *Service) worker() {
	defer s.wg.Done()

	for email := range s.queue {
		ctx := context.Background()
		if err := s.send(ctx, email); err != nil {
			log.Error().Err(err).
				Str("to", email.To).
				Str("template", email.TemplateName).
				Msg("Failed to send email")
		}
	}
}

// send renders and delivers the email
func (s *Service) send(ctx context.Context, email *QueuedEmail) error {
	tmpl, ok := s.templates[email.TemplateName]
	if !ok {
		log.Warn().Str("template", email.TemplateName).Msg("Template not found")
		return nil
	}

	var contentBuf bytes.Buffer
	if err := tmpl.Execute(&contentBuf, email.Data); err != nil {
		return err
	}

	var htmlBuf bytes.Buffer
	if err := s.baseTemplate.Execute(&htmlBuf, map[string]interface{}{
		"Content": template.HTML(contentBuf.String()),
	}); err != nil {
		return err
	}

	return s.client.Send(ctx, &EmailMessage{
		To:          email.To,
		ToName:      email.ToName,
		Subject:     email.Subject,
		HTMLContent: htmlBuf.String(),
	})
}

// Queue adds an email to the async send queue
func (s *Service) Queue(to, toName, templateName, subject string, data interface{}) {
	select {
	case s.queue <- &QueuedEmail{
		To:           to,
		ToName:       toName,
		Subject:      subject,
		TemplateName: templateName,
		Data:         data,
	}:
	default:
		log.Warn().Str("to", to).Msg("Email queue full, dropping email")
	}
}

// Close stops the email worker
func (s *Service) Close() {
	close(s.queue)
	s.wg.Wait()
}

// --- Convenience methods for specific emails ---

// SendRoleChanged notifies staff of an administrative role change
func (s *Service) SendRoleChanged(to, toName, oldRole, newRole, schoolName string) {
	s.Queue(to, toName, "role_changed", "Your role at "+schoolName+" has changed", map[string]string{
		"Name":         toName,
		"OldRole":      oldRole,
		"NewRole":      newRole,
		"SchoolName":   schoolName,
		"DashboardURL": s.frontendURL + "/dashboard",
	})
}

// SendPrincipalPromoted notifies the newly promoted principal
func (s *Service) SendPrincipalPromoted(to, toName, schoolName string) {
	s.Queue(to, toName, "principal_promoted", "You are now the Principal of "+schoolName, map[string]string{
		"Name":         toName,
		"SchoolName":   schoolName,
		"DashboardURL": s.frontendURL + "/dashboard",
	})
}

// SendWelcomeAdmin greets a newly created administrator
func (s *Service) SendWelcomeAdmin(to, toName, schoolName, role, email, tempPassword string) {
	s.Queue(to, toName, "welcome_admin", "Your SchoolHub administrator account", map[string]string{
		"Name":         toName,
		"SchoolName":   schoolName,
		"Role":         role,
		"Email":        email,
		"TempPassword": tempPassword,
		"LoginURL":     s.frontendURL + "/login",
	})
}
