package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ripe-api/pkg/jobs"
	"github.com/noah-isme/ripe-api/pkg/mailer"
)

const ripeAssignedJobType = "ripe_assigned_email"

var ripeAssignedTemplate = template.Must(template.New("ripe_assigned").Parse(`<p>Dear {{if .ResearcherName}}{{.ResearcherName}}{{else}}researcher{{end}},</p>
<p>Your submission <strong>{{.SubmissionTitle}}</strong> was accepted and assigned RIPE code <strong>{{.ReferenceNumber}}</strong>.</p>
{{if .Link}}<p>View it at {{.Link}}</p>{{end}}`))

// RipeAssignedMail is the payload of an acceptance e-mail.
type RipeAssignedMail struct {
	To              string
	ResearcherName  string
	SubmissionTitle string
	ReferenceNumber string
	Link            string
}

type jobQueue interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(job jobs.Job) error
}

type mailMetrics interface {
	ObserveMailDelivery(ok bool)
}

// NotificationDispatcher delivers e-mail copies of notifications on a background queue.
type NotificationDispatcher struct {
	sender  mailer.Sender
	queue   jobQueue
	metrics mailMetrics
	logger  *zap.Logger
}

// NewNotificationDispatcher builds a dispatcher with its own worker queue.
func NewNotificationDispatcher(sender mailer.Sender, metrics mailMetrics, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &NotificationDispatcher{sender: sender, metrics: metrics, logger: logger}
	cfg.Logger = logger
	d.queue = jobs.NewQueue("notification-mail", d.Handle, cfg)
	return d
}

// Start launches the queue workers.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop halts the workers. Pending jobs are dropped.
func (d *NotificationDispatcher) Stop() {
	d.queue.Stop()
}

// Dispatch enqueues an acceptance e-mail.
func (d *NotificationDispatcher) Dispatch(mail RipeAssignedMail) error {
	if mail.To == "" {
		return fmt.Errorf("mail recipient missing")
	}
	return d.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    ripeAssignedJobType,
		Payload: mail,
	})
}

// Handle renders and sends a queued e-mail. Returned errors trigger queue retries.
func (d *NotificationDispatcher) Handle(ctx context.Context, job jobs.Job) error {
	mail, ok := job.Payload.(RipeAssignedMail)
	if !ok || job.Type != ripeAssignedJobType {
		d.logger.Error("dropping unknown mail job", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	body, err := renderRipeAssigned(mail)
	if err != nil {
		d.logger.Error("failed to render mail", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}
	err = d.sender.Send(ctx, mailer.Message{
		To:      []string{mail.To},
		Subject: fmt.Sprintf("RIPE code %s assigned", mail.ReferenceNumber),
		HTML:    body,
	})
	if d.metrics != nil {
		d.metrics.ObserveMailDelivery(err == nil)
	}
	if err != nil {
		return err
	}
	d.logger.Info("notification e-mail sent", zap.String("job_id", job.ID), zap.String("ripe_code", mail.ReferenceNumber))
	return nil
}

func renderRipeAssigned(mail RipeAssignedMail) (string, error) {
	var buf bytes.Buffer
	if err := ripeAssignedTemplate.Execute(&buf, mail); err != nil {
		return "", err
	}
	return buf.String(), nil
}
