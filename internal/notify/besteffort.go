package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const sideChannelTimeout = 5 * time.Second

// BestEffort runs a side-channel step. Failures are logged at warn and
// swallowed; the step gets its own timeout detached from the request.
func BestEffort(ctx context.Context, log logrus.FieldLogger, step string, fields logrus.Fields, fn func(context.Context) error) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideChannelTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		log.WithFields(fields).WithField("step", step).WithError(err).Warn("best-effort step failed")
		return false
	}
	return true
}
