package emailsvc

import (
	"net/mail"
	"text/template"

	"github.com/gradewise/gradewise/core"
	"github.com/gradewise/gradewise/core/grading"
)

var jobFinishedTmpl = template.Must(template.New("jobFinished").Parse(
	`Grading job {{.Job.ID}} for paper {{.Job.PaperID}} finished with status "{{.Job.Status}}" ({{.Job.Progress}}%).
{{- if .Job.Error}}
Reason: {{.Job.Error}}
{{- end}}

Results: {{.URL}}
`))

// GradingNotifier mails a recipient whenever a grading job reaches a terminal state.
type GradingNotifier struct {
	mailSvc core.EmailService
	to      mail.Address
	baseURL string
}

// NewGradingNotifier returns nil when no recipient is configured.
func NewGradingNotifier(mailSvc core.EmailService, conf *core.Config) *GradingNotifier {
	if conf.Grading.NotifyEmail == "" {
		return nil
	}
	return &GradingNotifier{
		mailSvc: mailSvc,
		to:      mail.Address{Address: conf.Grading.NotifyEmail},
		baseURL: conf.FrontendBaseURL,
	}
}

// JobFinished is meant to be registered with grading.Scheduler.OnTerminal.
func (n *GradingNotifier) JobFinished(job grading.Job) {
	subject := "Grading completed"
	if job.Status == grading.StatusFailed {
		subject = "Grading failed"
	}
	n.mailSvc.SendMessages(&core.EmailMessage{
		To:       []mail.Address{n.to},
		Subject:  subject,
		Template: jobFinishedTmpl,
		TemplateData: map[string]interface{}{
			"Job": job,
			"URL": n.baseURL + "/results/" + job.ID,
		},
	})
}
