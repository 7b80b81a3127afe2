package usecase

import (
	"bytes"
	"html/template"

	"appforge/internal/domain/entity"
)

const (
	successSubject = "Your AI-Powered App Has Been Generated and Deployed!"
	failureSubject = "Code Generation Failed"
)

var successBody = template.Must(template.New("success").Parse(`
<p>Your request to generate an application for '<b>{{.Prompt}}</b>' has been completed.</p>
<p>The generated application has been deployed locally. You can access it here:</p>
<p><a href="{{.URL}}">{{.URL}}</a></p>
<p><b>Important:</b> This URL is shared. If another build is run, this URL will point to the new application.</p>
<hr>
<p>This application was autonomously generated by an AI agent.</p>
<hr>
<p>Note: This server is running on the machine where the API is hosted. It will stop if the main application is terminated.</p>
`))

var failureBody = template.Must(template.New("failure").Parse(
	`<p>An error occurred while processing your request for '{{.Prompt}}'.</p><p><b>Error:</b> {{.Error}}</p>`))

func successNotification(s *entity.Session) entity.Notification {
	return entity.Notification{
		Recipient: s.Recipient,
		Subject:   successSubject,
		HTMLBody:  render(successBody, map[string]string{"Prompt": s.Prompt, "URL": s.URL}),
	}
}

func failureNotification(s *entity.Session, err error) entity.Notification {
	return entity.Notification{
		Recipient: s.Recipient,
		Subject:   failureSubject,
		HTMLBody:  render(failureBody, map[string]string{"Prompt": s.Prompt, "Error": err.Error()}),
	}
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return buf.String()
}
