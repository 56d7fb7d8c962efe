// Package mail renders feedback submissions into email bodies and relays
// them through a transactional email provider.
package mail

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/tbourn/trustedloops-edge/internal/domain"
)

// Message is a provider-neutral outbound email.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Envelope holds the fixed addressing for feedback mail.
type Envelope struct {
	From     string
	To       string
	SiteName string
}

var htmlTmpl = htmltemplate.Must(htmltemplate.New("feedback.html").Parse(`
<h2>New Feedback from {{.Site}} Website</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<hr>
<h3>Message:</h3>
<p>{{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
<hr>
<p style="color: #666; font-size: 12px;">
  Sent from the {{.Site}} website feedback form
</p>
`))

var textTmpl = texttemplate.Must(texttemplate.New("feedback.txt").Parse(`
New Feedback from {{.Site}} Website

Name: {{.Name}}
Email: {{.Email}}

Message:
{{.Message}}

---
Sent from the {{.Site}} website feedback form
`))

type view struct {
	Site    string
	Name    string
	Email   string
	Message string
	Lines   []string
}

// Render builds the feedback email for sub. User-supplied values are
// HTML-escaped in the HTML part and newlines in the message become <br>.
func Render(env Envelope, sub domain.FeedbackSubmission) (Message, error) {
	v := view{
		Site:    env.SiteName,
		Name:    sub.Name,
		Email:   sub.Email,
		Message: sub.Message,
		Lines:   strings.Split(sub.Message, "\n"),
	}

	var h, t bytes.Buffer
	if err := htmlTmpl.Execute(&h, v); err != nil {
		return Message{}, err
	}
	if err := textTmpl.Execute(&t, v); err != nil {
		return Message{}, err
	}

	return Message{
		From:    env.From,
		To:      env.To,
		ReplyTo: sub.Email,
		Subject: env.SiteName + " Feedback from " + sub.Name,
		HTML:    strings.TrimSpace(h.String()),
		Text:    strings.TrimSpace(t.String()),
	}, nil
}
