package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const layout = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Title}} - EcoWaste Cert</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #16a34a; color: white; padding: 20px; text-align: center; }
    .content { padding: 30px; background: #f9f9f9; }
    .button { display: inline-block; background: #16a34a; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
    .footer { text-align: center; padding: 20px; color: #666; font-size: 14px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>EcoWaste Cert</h1><p>{{.Title}}</p></div>
    <div class="content">{{template "content" .}}
      <p>Best regards,<br>The EcoWaste Cert Team</p>
    </div>
    <div class="footer"><p>Leading the way in ethical waste handling certification</p></div>
  </div>
</body>
</html>`

var (
	verificationTmpl = template.Must(template.New("verification").Parse(layout + `
{{define "content"}}
      <h2>Welcome, {{.Name}}!</h2>
      <p>Thank you for registering with EcoWaste Cert. Please verify your email address to activate your account:</p>
      <div style="text-align: center;"><a href="{{.URL}}" class="button">Verify Email Address</a></div>
      <p>If the button doesn't work, copy and paste this link into your browser:</p>
      <p style="word-break: break-all; color: #16a34a;">{{.URL}}</p>
      <p><strong>This verification link will expire in {{.Expiry}}.</strong></p>
      <p>If you didn't create an account with us, please ignore this email.</p>
{{end}}`))

	resetTmpl = template.Must(template.New("reset").Parse(layout + `
{{define "content"}}
      <h2>Hello, {{.Name}}</h2>
      <p>We received a request to reset the password of your EcoWaste Cert account. If you made this request, use the button below:</p>
      <div style="text-align: center;"><a href="{{.URL}}" class="button">Reset Password</a></div>
      <p style="word-break: break-all; color: #16a34a;">{{.URL}}</p>
      <p><strong>This password reset link will expire in {{.Expiry}}.</strong> If you didn't request a reset, ignore this email; your password stays unchanged.</p>
{{end}}`))

	certStatusTmpl = template.Must(template.New("cert-status").Parse(layout + `
{{define "content"}}
      <h2>Hello, {{.Name}}</h2>
      <p>The certification application for <strong>{{.Business}}</strong> is now <strong>{{.Status}}</strong>.</p>
      {{if .Reason}}<p>Evaluator notes: {{.Reason}}</p>{{end}}
      {{if .ValidUntil}}<p>The certification is valid until {{.ValidUntil}}.</p>{{end}}
{{end}}`))
)

type linkData struct {
	Title  string
	Name   string
	URL    string
	Expiry string
}

type certData struct {
	Title      string
	Name       string
	Business   string
	Status     string
	Reason     string
	ValidUntil string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// VerificationEmail renders the account verification message.
func VerificationEmail(to, name, url string, ttl time.Duration) (Message, error) {
	html, err := render(verificationTmpl, linkData{Title: "Email Verification", Name: name, URL: url, Expiry: humanDuration(ttl)})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:    "verification",
		To:      to,
		Subject: "Verify your email - EcoWaste Cert",
		HTML:    html,
		Text:    "Welcome to EcoWaste Cert! Please verify your email by visiting: " + url,
	}, nil
}

// PasswordResetEmail renders the password reset message.
func PasswordResetEmail(to, name, url string, ttl time.Duration) (Message, error) {
	html, err := render(resetTmpl, linkData{Title: "Password Reset Request", Name: name, URL: url, Expiry: humanDuration(ttl)})
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:    "password_reset",
		To:      to,
		Subject: "Password Reset Request - EcoWaste Cert",
		HTML:    html,
		Text:    "Reset your password by visiting: " + url,
	}, nil
}

// CertificationStatusEmail tells a recycler about an evaluation outcome.
// validUntil may be nil.
func CertificationStatusEmail(to, name, business, status, reason string, validUntil *time.Time) (Message, error) {
	data := certData{Title: "Certification Update", Name: name, Business: business, Status: status, Reason: reason}
	if validUntil != nil {
		data.ValidUntil = validUntil.UTC().Format("2006-01-02")
	}
	html, err := render(certStatusTmpl, data)
	if err != nil {
		return Message{}, err
	}
	text := fmt.Sprintf("Your certification application for %s is now %s.", business, status)
	if reason != "" {
		text += " Notes: " + reason
	}
	return Message{
		Kind:    "certification_status",
		To:      to,
		Subject: "Certification " + status + " - EcoWaste Cert",
		HTML:    html,
		Text:    text,
	}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short while"
	case d%(24*time.Hour) == 0:
		if n := int(d / (24 * time.Hour)); n != 1 {
			return fmt.Sprintf("%d days", n)
		}
		return "1 day"
	case d%time.Hour == 0:
		if n := int(d / time.Hour); n != 1 {
			return fmt.Sprintf("%d hours", n)
		}
		return "1 hour"
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}
