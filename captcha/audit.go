package captcha

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AttemptLogger records grading outcomes to an external sink.
// Implementations should be non-blocking and best-effort.
type AttemptLogger interface {
	LogAttempt(ctx context.Context, challengeID string, result Result)
}

// LogrusAttemptLogger writes attempts as structured log lines.
type LogrusAttemptLogger struct {
	Log logrus.FieldLogger
}

func (l LogrusAttemptLogger) LogAttempt(_ context.Context, challengeID string, result Result) {
	if l.Log == nil {
		return
	}
	entry := l.Log.WithFields(logrus.Fields{
		"challenge_id": challengeID,
		"flow":         result.Flow,
		"success":      result.Success,
		"reason":       result.Reason,
	})
	if result.Success {
		entry.Info("captcha verified")
		return
	}
	entry.Warn("captcha rejected")
}
