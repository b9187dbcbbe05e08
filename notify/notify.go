// Package notify delivers templated messages to users. Delivery itself is an
// external concern; LogNotifier records what would have been sent.
package notify

import (
	"context"

	authlang "github.com/PaulFidika/auditstore/lang"
	"github.com/sirupsen/logrus"
)

// TemplatePurchaseConfirmed is sent once per newly created entitlement.
const TemplatePurchaseConfirmed = "purchase_confirmed"

// Notifier sends template to recipient. Implementations should be
// non-blocking and best-effort.
type Notifier interface {
	Send(ctx context.Context, template, recipient string, data map[string]any) error
}

// LogNotifier writes each message to a logrus logger.
type LogNotifier struct {
	Log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogNotifier{Log: log}
}

func (n *LogNotifier) Send(ctx context.Context, template, recipient string, data map[string]any) error {
	fields := logrus.Fields{
		"template":  template,
		"recipient": recipient,
		"language":  authlang.FromContextOr(ctx, authlang.Default),
	}
	for k, v := range data {
		fields["data."+k] = v
	}
	n.Log.WithFields(fields).Info("notification queued")
	return nil
}

// Nop discards every message.
type Nop struct{}

func (Nop) Send(context.Context, string, string, map[string]any) error { return nil }
