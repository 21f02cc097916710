package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	cfotel "github.com/Strob0t/Tasklane/internal/adapter/otel"
	"github.com/Strob0t/Tasklane/internal/domain/principal"
	"github.com/Strob0t/Tasklane/internal/logger"
	"github.com/Strob0t/Tasklane/internal/port/messagequeue"
	"github.com/Strob0t/Tasklane/internal/resilience"
)

const auditPublishTimeout = 2 * time.Second

// AuditService publishes audit events. Publishing never fails the calling
// operation: errors are logged and an open breaker skips the broker.
type AuditService struct {
	queue   messagequeue.Queue
	breaker *resilience.Breaker
	metrics *cfotel.Metrics
}

// NewAuditService creates an AuditService. A nil queue disables publishing.
func NewAuditService(q messagequeue.Queue, b *resilience.Breaker) *AuditService {
	return &AuditService{queue: q, breaker: b}
}

// SetMetrics attaches the dropped-event counter.
func (s *AuditService) SetMetrics(m *cfotel.Metrics) { s.metrics = m }

// Actor fills the actor fields of ev from pc.
func Actor(ev messagequeue.AuditEvent, pc principal.Context) messagequeue.AuditEvent {
	ev.ActorID = pc.PrincipalID()
	ev.ActorRole = string(pc.Role())
	return ev
}

// Record publishes ev on its subject.
func (s *AuditService) Record(ctx context.Context, ev messagequeue.AuditEvent) {
	if s == nil || s.queue == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if ev.RequestID == "" {
		ev.RequestID = logger.RequestID(ctx)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		slog.ErrorContext(ctx, "audit marshal failed", "subject", ev.Subject, "error", err)
		return
	}
	if err := messagequeue.Validate(ev.Subject, data); err != nil {
		slog.ErrorContext(ctx, "audit event rejected", "error", err)
		return
	}

	// Detached from request cancellation so a finished request still audits.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditPublishTimeout)
	defer cancel()

	publish := func(ctx context.Context) error { return s.queue.Publish(ctx, ev.Subject, data) }
	if s.breaker != nil {
		err = s.breaker.Do(pubCtx, publish)
	} else {
		err = publish(pubCtx)
	}
	if err != nil {
		s.metrics.AuditDropped(ctx, ev.Subject)
		slog.WarnContext(ctx, "audit publish failed", "subject", ev.Subject, "error", err)
	}
}

// StartLogSink consumes every audit subject and writes each event to the
// service log, so deployments without a downstream consumer still keep an
// audit trail. The returned function stops the consumer.
func (s *AuditService) StartLogSink(ctx context.Context) (func(), error) {
	if s == nil || s.queue == nil {
		return func() {}, nil
	}
	return s.queue.Subscribe(ctx, messagequeue.SubjectAuditPrefix+">", func(ctx context.Context, subject string, data []byte) error {
		var ev messagequeue.AuditEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		slog.InfoContext(ctx, "audit",
			"subject", subject,
			"actor_id", ev.ActorID,
			"actor_role", ev.ActorRole,
			"tenant_id", ev.TenantID,
			"target_id", ev.TargetID,
			"reason", ev.Reason,
			"at", ev.At,
		)
		return nil
	})
}
