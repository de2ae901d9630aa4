package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	texttemplate "text/template"

	"go.uber.org/zap"
)

// Config holds SMTP configuration
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// Mailer handles sending emails
type Mailer struct {
	config   Config
	log      *zap.Logger
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a new Mailer instance
func New(cfg Config, log *zap.Logger) *Mailer {
	return &Mailer{config: cfg, log: log, sendMail: smtp.SendMail}
}

// NewMessageEmail is the content of a "you have a new message" email.
type NewMessageEmail struct {
	RecipientName    string
	SenderName       string
	ConversationName string
	Preview          string
	Link             string
}

// SendNewMessage tells toEmail about a message they have not seen yet.
func (m *Mailer) SendNewMessage(toEmail string, email NewMessageEmail) error {
	subject := "New message from " + email.SenderName

	htmlBody, err := render(newMessageHTML, email)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	textBody, err := renderText(newMessageText, email)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return m.send(toEmail, subject, textBody, htmlBody)
}

const boundary = "chatcore-alternative"

// send delivers a multipart/alternative email via SMTP
func (m *Mailer) send(to, subject, textBody, htmlBody string) error {
	addr := fmt.Sprintf("%s:%s", m.config.Host, m.config.Port)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", m.config.FromName, m.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(textBody)
	fmt.Fprintf(&msg, "\r\n--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(htmlBody)
	fmt.Fprintf(&msg, "\r\n--%s--\r\n", boundary)

	var auth smtp.Auth
	if m.config.Username != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := m.sendMail(addr, auth, m.config.From, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.log.Debug("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

var newMessageHTML = template.Must(template.New("new_message").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#f4f5f7;font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;">
    <div style="max-width:500px;margin:40px auto;background:#ffffff;border-radius:12px;overflow:hidden;border:1px solid #e2e8f0;">
        <div style="background:#4f46e5;padding:24px;text-align:center;">
            <h1 style="color:#fff;margin:0;font-size:22px;">ChatCore</h1>
        </div>
        <div style="padding:28px;">
            <p style="color:#1e293b;font-size:15px;margin:0 0 16px;">Hi <strong>{{.RecipientName}}</strong>,</p>
            <p style="color:#475569;font-size:14px;margin:0 0 16px;">
                <strong>{{.SenderName}}</strong> sent you a message in <strong>{{.ConversationName}}</strong>:
            </p>
            <blockquote style="margin:0 0 24px;padding:12px 16px;border-left:4px solid #4f46e5;background:#f8fafc;color:#334155;font-size:14px;">{{.Preview}}</blockquote>
            {{if .Link}}<a href="{{.Link}}" style="display:inline-block;background:#4f46e5;color:#fff;text-decoration:none;padding:10px 18px;border-radius:8px;font-size:14px;">Open conversation</a>{{end}}
        </div>
        <div style="padding:14px 28px;border-top:1px solid #e2e8f0;text-align:center;">
            <p style="color:#94a3b8;font-size:12px;margin:0;">You can mute this conversation from its settings.</p>
        </div>
    </div>
</body>
</html>`))

var newMessageText = texttemplate.Must(texttemplate.New("new_message_text").Parse(`Hi {{.RecipientName}},

{{.SenderName}} sent you a message in {{.ConversationName}}:

    {{.Preview}}
{{if .Link}}
Open the conversation: {{.Link}}
{{end}}`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	err := t.Execute(&buf, data)
	return buf.String(), err
}

func renderText(t *texttemplate.Template, data any) (string, error) {
	var buf strings.Builder
	err := t.Execute(&buf, data)
	return buf.String(), err
}
