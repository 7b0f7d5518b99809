package mailer

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type Localizer interface {
	Message(lang, id string, data map[string]any) string
}

const layoutTpl = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: #1f2937; padding: 20px; border-radius: 10px; text-align: center;">
    <h1 style="color: #fbbf24; margin: 0; font-size: 32px;">SPARK</h1>
    <p style="color: #d1d5db; margin: 5px 0 0 0; font-size: 14px;">{{.Platform}}</p>
  </div>
  {{template "content" .}}
  <div style="text-align: center; color: #6b7280; font-size: 12px;">
    <p>This is an automated message from SPARK Platform.</p>
  </div>
</body>
</html>`

const otpTpl = `{{define "content"}}
  <div style="background: #f9fafb; padding: 30px; border-radius: 10px; margin: 20px 0;">
    <p>Dear {{.Name}},</p>
    <p>{{.Intro}}</p>
    <div style="text-align: center; margin: 30px 0;">
      <span style="background: #fbbf24; color: #1f2937; font-size: 32px; font-weight: bold; letter-spacing: 8px; padding: 15px 30px; border-radius: 8px;">{{.Code}}</span>
    </div>
    <p>{{.Validity}}</p>
    <div style="background: #eff6ff; border-left: 4px solid #3b82f6; padding: 15px;">
      <p style="color: #1e40af; font-size: 14px; margin: 0;"><strong>Security Notice:</strong> {{.Security}}</p>
    </div>
  </div>
{{end}}`

const certificateTpl = `{{define "content"}}
  <div style="background: #f0fdf4; padding: 30px; border-radius: 10px; margin: 20px 0; border: 2px solid #10b981;">
    <p>Dear {{.Name}},</p>
    <p>{{.Body}}</p>
    <p><strong>Certificate ID:</strong> {{.CertificateID}}<br>
       <strong>Ledger hash:</strong> <code>{{.Hash}}</code></p>
  </div>
{{end}}`

var (
	otpTemplate         = template.Must(template.Must(template.New("layout").Parse(layoutTpl)).Parse(otpTpl))
	certificateTemplate = template.Must(template.Must(template.New("layout").Parse(layoutTpl)).Parse(certificateTpl))
)

// Mailer renders SPARK emails and hands them to a Sender.
type Mailer struct {
	sender Sender
	loc    Localizer
	logger *zap.Logger
}

func New(sender Sender, loc Localizer, logger *zap.Logger) *Mailer {
	return &Mailer{sender: sender, loc: loc, logger: logger}
}

type OTPEmail struct {
	To      string
	Name    string
	Purpose string
	Code    string
	TTL     time.Duration
	Lang    string
}

func (m *Mailer) SendOTP(ctx context.Context, e OTPEmail) error {
	lang := langOrDefault(e.Lang)
	name := e.Name
	if name == "" {
		name = "User"
	}
	minutes := int(e.TTL.Minutes())
	purpose := formatPurpose(e.Purpose)

	subject := m.loc.Message(lang, "otp_subject", nil)
	data := map[string]any{
		"Subject":  subject,
		"Platform": m.loc.Message(lang, "platform_name", nil),
		"Name":     name,
		"Code":     e.Code,
		"Intro":    m.loc.Message(lang, "otp_intro", map[string]any{"Purpose": purpose}),
		"Validity": m.loc.Message(lang, "otp_validity", map[string]any{"Minutes": minutes}),
		"Security": m.loc.Message(lang, "otp_security", nil),
	}

	html, err := render(otpTemplate, data)
	if err != nil {
		return err
	}
	text := strings.Join([]string{
		subject, "", "Dear " + name + ",", "", data["Intro"].(string) + " " + e.Code, "",
		data["Validity"].(string), data["Security"].(string),
	}, "\n")

	return m.sender.Send(ctx, Message{To: e.To, Subject: subject, HTML: html, Text: text})
}

type CertificateEmail struct {
	To              string
	Name            string
	CertificateName string
	CertificateID   string
	Hash            string
	Lang            string
}

func (m *Mailer) SendCertificateReady(ctx context.Context, e CertificateEmail) error {
	lang := langOrDefault(e.Lang)
	tdata := map[string]any{"Name": e.CertificateName}
	subject := m.loc.Message(lang, "certificate_ready_subject", tdata)

	html, err := render(certificateTemplate, map[string]any{
		"Subject":       subject,
		"Platform":      m.loc.Message(lang, "platform_name", nil),
		"Name":          e.Name,
		"Body":          m.loc.Message(lang, "certificate_ready_body", tdata),
		"CertificateID": e.CertificateID,
		"Hash":          e.Hash,
	})
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{To: e.To, Subject: subject, HTML: html})
}

// SendAsync delivers in the background and only logs failures.
func (m *Mailer) SendAsync(kind string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			m.logger.Warn("email delivery failed", zap.String("kind", kind), zap.Error(err))
		}
	}()
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatPurpose(purpose string) string {
	p := strings.ReplaceAll(purpose, "_", " ")
	return cases.Title(language.English).String(p)
}

func langOrDefault(lang string) string {
	if lang == "" {
		return "en"
	}
	return lang
}
