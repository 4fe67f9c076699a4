package main

import (
	"context"

	"iris/internal/task"
)

// outboxNotifier delivers notifications by queueing send_email tasks for the
// orchestrator's poller. The backend itself never talks SMTP.
type outboxNotifier struct {
	outbox *task.Outbox
}

func newOutboxNotifier(outbox *task.Outbox) *outboxNotifier {
	return &outboxNotifier{outbox: outbox}
}

func (n *outboxNotifier) Send(_ context.Context, to, subject, body string) error {
	t := task.New("send_email", map[string]string{
		"to":      to,
		"subject": subject,
		"body":    body,
	}, "iris", to, "")
	_, err := n.outbox.Write(t)
	return err
}
