// Package notify moves admin broadcasts through the queue to the backend.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"classaccess/internal/audit"
	"classaccess/internal/backend"
	"classaccess/internal/metrics"
	"classaccess/internal/model"
	"classaccess/internal/queue"
)

// MessageType tags notification jobs on the queue.
const MessageType = "notification"

// Job is one broadcast waiting to be delivered.
type Job struct {
	Message string                   `json:"message"`
	Target  model.NotificationTarget `json:"target"`
	ActorID int                      `json:"actor_id"`
}

// Validate checks the job before it is queued.
func (j Job) Validate() error {
	if j.Message == "" {
		return errors.New("message required")
	}
	if !j.Target.Valid() {
		return fmt.Errorf("unknown target %d", j.Target)
	}
	return nil
}

// Sender delivers a broadcast.
type Sender interface {
	SendNotification(ctx context.Context, cred backend.Credential, message string, target model.NotificationTarget) error
}

// Recorder stores audit events.
type Recorder interface {
	Record(ctx context.Context, evt audit.Event) (audit.Event, error)
}

// Enqueue validates job and publishes it, returning the job id.
func Enqueue(ctx context.Context, q queue.Queue, job Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}
	msg, err := queue.NewMessage(MessageType, job)
	if err != nil {
		return "", err
	}
	if err := q.Publish(ctx, msg); err != nil {
		return "", fmt.Errorf("publish notification: %w", err)
	}
	metrics.Notifications.WithLabelValues("queued").Inc()
	return msg.ID, nil
}

// Dispatcher consumes notification jobs and sends them with the service
// credential.
type Dispatcher struct {
	sender   Sender
	recorder Recorder
	cred     backend.Credential
	log      *zap.Logger
}

// NewDispatcher builds a dispatcher. recorder may be nil.
func NewDispatcher(sender Sender, recorder Recorder, cred backend.Credential, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{sender: sender, recorder: recorder, cred: cred, log: log}
}

// Run handles messages until ctx ends or the queue closes.
func (d *Dispatcher) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	for msg := range messages {
		if msg.Type != MessageType {
			continue
		}
		if err := d.Handle(ctx, msg); err != nil {
			d.log.Warn("notification failed", zap.String("job_id", msg.ID), zap.Error(err))
		}
	}
	return ctx.Err()
}

// Handle delivers one job and records the outcome.
func (d *Dispatcher) Handle(ctx context.Context, msg queue.Message) error {
	var job Job
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		metrics.Notifications.WithLabelValues("failed").Inc()
		return fmt.Errorf("decode job: %w", err)
	}

	err := d.sender.SendNotification(ctx, d.cred, job.Message, job.Target)
	action, outcome := audit.ActionNotificationSent, "sent"
	if err != nil {
		action, outcome = audit.ActionNotificationFailed, "failed"
	}
	metrics.Notifications.WithLabelValues(outcome).Inc()

	if d.recorder != nil {
		detail := job.Message
		if err != nil {
			detail = err.Error()
		}
		evt := audit.Event{ActorID: job.ActorID, Action: action, Subject: "target:" + strconv.Itoa(int(job.Target)), Detail: detail}
		if _, rerr := d.recorder.Record(ctx, evt); rerr != nil {
			d.log.Warn("audit record failed", zap.Error(rerr))
		}
	}
	if err == nil {
		d.log.Info("notification sent", zap.String("job_id", msg.ID), zap.Int("target", int(job.Target)))
	}
	return err
}
