package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/service"
)

// StartNotificationWorker attaches the notification handlers to the event
// stream. Dispatch is synchronous, so there is no goroutine to manage.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification handlers registered")
}
