package services

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"backoffice-chat/internal/domain/actor"
	"backoffice-chat/pkg/logger"
)

// AuditSink receives fire-and-forget audit records. Implementations must
// never block the caller and never surface failures.
type AuditSink interface {
	Append(event string, a actor.Actor, entityType string, entityID uuid.UUID, detail string)
}

type auditRecord struct {
	event      string
	actorKind  string
	actorID    uuid.UUID
	entityType string
	entityID   uuid.UUID
	detail     string
}

// LogAuditSink writes audit records to the structured log from a
// buffered worker. When the buffer is full the record is dropped and
// counted, which is acceptable for a best-effort trail.
type LogAuditSink struct {
	log     *logger.Logger
	records chan auditRecord
	done    chan struct{}
}

func NewLogAuditSink(log *logger.Logger) *LogAuditSink {
	s := &LogAuditSink{
		log:     log,
		records: make(chan auditRecord, 1024),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *LogAuditSink) Append(event string, a actor.Actor, entityType string, entityID uuid.UUID, detail string) {
	rec := auditRecord{
		event:      event,
		actorKind:  string(a.Kind),
		actorID:    a.ID(),
		entityType: entityType,
		entityID:   entityID,
		detail:     detail,
	}
	select {
	case s.records <- rec:
	default:
		s.log.Warnf("audit buffer full, dropping %s", event)
	}
}

func (s *LogAuditSink) run() {
	for {
		select {
		case rec := <-s.records:
			s.log.Logger.Info("audit",
				zap.String("event", rec.event),
				zap.String("actor_kind", rec.actorKind),
				zap.String("actor_id", rec.actorID.String()),
				zap.String("entity_type", rec.entityType),
				zap.String("entity_id", rec.entityID.String()),
				zap.String("detail", rec.detail),
			)
		case <-s.done:
			return
		}
	}
}

func (s *LogAuditSink) Close() {
	close(s.done)
}
