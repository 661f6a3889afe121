package mailer

import (
	"bytes"
	"html/template"
)

var passwordTmpl = template.Must(template.New("password").Parse(`<div style="font-family: 'Segoe UI', Arial, sans-serif; max-width: 500px; margin: 0 auto; padding: 30px; background: #1a1a2e; color: #f0f0f0; border-radius: 16px;">
  <div style="text-align: center; margin-bottom: 24px;">
    <h1 style="color: #8B5CF6; font-size: 24px; margin: 0;">BMSCE Events Portal</h1>
    <p style="color: #9CA3AF; font-size: 14px; margin-top: 4px;">Password Recovery</p>
  </div>
  <p style="color: #D1D5DB;">Hi <strong style="color: white;">{{.FullName}}</strong>,</p>
  {{if .Reset}}<p style="color: #D1D5DB;">Your password has been reset. Here is your new temporary password:</p>
  {{else}}<p style="color: #D1D5DB;">Here is your password for your BMSCE Events account:</p>
  {{end}}<div style="background: #2d2d4e; padding: 16px; border-radius: 12px; text-align: center; margin: 20px 0; border: 1px solid #8B5CF6;">
    <code style="font-size: 22px; color: #8B5CF6; letter-spacing: 2px; font-weight: bold;">{{.Password}}</code>
  </div>
  {{if .Reset}}<p style="color: #D1D5DB; font-size: 14px;">Please log in and change this password as soon as possible.</p>
  {{end}}<hr style="border: 1px solid #333; margin: 20px 0;">
  <p style="color: #6B7280; font-size: 12px; text-align: center;">BMSCE Events Portal &bull; Bull Temple Road, Bengaluru</p>
</div>`))

type PasswordMail struct {
	To       string
	FullName string
	Password string
	Reset    bool // true = 產生了臨時密碼
}

func (p PasswordMail) Message() (Message, error) {
	var buf bytes.Buffer
	if err := passwordTmpl.Execute(&buf, p); err != nil {
		return Message{}, err
	}
	subject := "BMSCE Events - Your Password"
	if p.Reset {
		subject = "BMSCE Events - Your New Password"
	}
	return Message{To: p.To, Subject: subject, HTML: buf.String()}, nil
}
