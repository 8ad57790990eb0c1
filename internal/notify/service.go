// Package notify surfaces detection and remediation activity to tenants.
// Delivery is fire and forget: a notification that cannot be written or
// pushed is logged and dropped, never propagated to remediation flow.
package notify

import (
	"context"
	"strings"

	"github.com/hostwarden/hostwarden/internal/datastore/entities"
	"github.com/hostwarden/hostwarden/internal/datastore/repository"
	"github.com/hostwarden/hostwarden/internal/logger"
	"github.com/hostwarden/hostwarden/internal/playbook"
)

// issueMessages maps issue types to the tenant-facing explanation. Types
// without an entry fall back to a generic message.
var issueMessages = map[string]string{
	"high_memory":          "Your site {domain} is using more memory than usual. We are optimizing it automatically.",
	"critical_memory":      "Your site {domain} is critically low on memory. Automatic remediation is underway.",
	"high_cpu":             "Your site {domain} is under sustained CPU load. We are looking into it.",
	"slow_queries":         "Database queries on {domain} are running slower than usual. We are addressing it.",
	"cache_miss_storm":     "The cache on {domain} is underperforming. We are rebuilding it.",
	"disk_filling":         "Disk space on {domain} is running low. We are cleaning up automatically.",
	"disk_critical":        "Disk space on {domain} is critically low. Cleanup is in progress.",
	"response_degradation": "Response times on {domain} have degraded. We are optimizing your site.",
}

const genericIssueMessage = "We detected a performance issue on {domain} and are looking into it."

// Service writes tenant notifications and optionally mirrors them to push
// channels.
type Service struct {
	repo repository.NotificationRepository
	// push is optional; nil disables outbound push.
	push *PushSender
	log  logger.Logger
}

// NewService creates a notification service. push may be nil.
func NewService(repo repository.NotificationRepository, push *PushSender, log logger.Logger) *Service {
	return &Service{repo: repo, push: push, log: log}
}

// NotifyTenant records one notification. Failures are logged and swallowed.
func (s *Service) NotifyTenant(ctx context.Context, tenantID uint, eventType, title, message, severity string, issueID *uint) {
	row := &entities.TenantNotification{
		TenantID:       tenantID,
		EventType:      eventType,
		Title:          title,
		Message:        message,
		Severity:       severity,
		RelatedIssueID: issueID,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.log.Error("failed to store tenant notification",
			logger.Uint64("tenant_id", uint64(tenantID)),
			logger.String("event_type", eventType),
			logger.Error(err))
	}
	if s.push != nil {
		if err := s.push.Send(title, message); err != nil {
			s.log.Warn("push delivery failed",
				logger.Uint64("tenant_id", uint64(tenantID)),
				logger.Error(err))
		}
	}
}

// IssueDetected notifies a tenant about a newly opened issue. Severity
// follows the issue.
func (s *Service) IssueDetected(ctx context.Context, tenant *entities.Tenant, issue *entities.DetectedIssue) {
	template, ok := issueMessages[issue.IssueType]
	if !ok {
		template = genericIssueMessage
	}
	message := strings.NewReplacer("{domain}", tenant.Domain).Replace(template)
	s.NotifyTenant(ctx, tenant.ID, entities.EventIssueDetected,
		"Performance issue detected", message, issue.Severity, &issue.ID)
}

// IssueResolved notifies a tenant that an issue cleared.
func (s *Service) IssueResolved(ctx context.Context, tenant *entities.Tenant, issue *entities.DetectedIssue) {
	message := "The " + strings.ReplaceAll(issue.IssueType, "_", " ") +
		" issue on " + tenant.Domain + " has been resolved."
	s.NotifyTenant(ctx, tenant.ID, entities.EventIssueResolved,
		"Issue resolved", message, entities.SeverityInfo, &issue.ID)
}

// FixApplied notifies a tenant after a successful playbook run, naming the
// actions that succeeded.
func (s *Service) FixApplied(ctx context.Context, tenant *entities.Tenant, issue *entities.DetectedIssue, result *playbook.Result) {
	var applied []string
	for i := range result.Actions {
		if result.Actions[i].Success {
			applied = append(applied, strings.ReplaceAll(result.Actions[i].Name, "_", " "))
		}
	}
	message := "We automatically optimized " + tenant.Domain + ": " + strings.Join(applied, ", ") + "."
	s.NotifyTenant(ctx, tenant.ID, entities.EventAutoFixApplied,
		"Automatic fix applied", message, entities.SeverityInfo, &issue.ID)
}

// FixFailed notifies a tenant that automated remediation did not succeed
// and the issue was escalated.
func (s *Service) FixFailed(ctx context.Context, tenant *entities.Tenant, issue *entities.DetectedIssue) {
	message := "Automatic remediation on " + tenant.Domain +
		" was not sufficient. Our team has been alerted."
	s.NotifyTenant(ctx, tenant.ID, entities.EventAutoFixFailed,
		"Attention needed", message, entities.SeverityWarning, &issue.ID)
}
