package worker

import (
	"github.com/spec-kit/repairshop-session/internal/service"
)

// StartAuditWorker registers session audit handlers.
func StartAuditWorker(auditService *service.SessionAuditService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
