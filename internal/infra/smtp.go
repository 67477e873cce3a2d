package infra

import (
	"fmt"
	"html"
	"net/smtp"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for transactional emails.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
	}
}

// Configured reports whether an SMTP host was provided.
func (m *Mailer) Configured() bool { return m != nil && m.host != "" }

// SendWelcome mails a new loyalty member the link to their card.
func (m *Mailer) SendWelcome(to, name, qrLink string) error {
	if !m.Configured() {
		return fmt.Errorf("mailer: SMTP_HOST no configurado")
	}
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = "Bienvenida al programa de lealtad Haruja"
	e.Text = []byte(fmt.Sprintf(
		"Hola %s,\n\nYa formas parte del programa de lealtad. Consulta tus puntos y recompensas en tu tarjeta digital:\n%s\n\nGracias por tu compra.\n",
		name, qrLink))
	e.HTML = []byte(fmt.Sprintf(
		`<p>Hola %s,</p><p>Ya formas parte del programa de lealtad. Consulta tus puntos y recompensas en tu <a href="%s">tarjeta digital</a>.</p><p>Gracias por tu compra.</p>`,
		html.EscapeString(name), html.EscapeString(qrLink)))

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return e.Send(m.addr, auth)
}
