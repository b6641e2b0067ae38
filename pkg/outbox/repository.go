package outbox

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/shopora-backend/pkg/db/models"
	"github.com/angelmondragon/shopora-backend/pkg/enums"
)

const maxLastErrorLen = 1024

// Repository is stateless apart from its clock: every method runs inside the
// caller's transaction so events commit or roll back with the domain write.
type Repository struct {
	now func() time.Time
}

func NewRepository() *Repository {
	return &Repository{now: time.Now}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Create(&event).Error
}

// ExistsTx reports whether an event of the given type was already queued for the aggregate.
func (r *Repository) ExistsTx(tx *gorm.DB, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, aggregateID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, errNoTx
	}
	var found int64
	err := tx.Model(&models.OutboxEvent{}).
		Where(&models.OutboxEvent{EventType: eventType, AggregateType: aggregateType, AggregateID: aggregateID}).
		Count(&found).Error
	return found > 0, err
}

// FetchUnpublishedForPublish returns the oldest unsettled rows. On Postgres they
// are locked FOR UPDATE SKIP LOCKED so publishers can run side by side.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errNoTx
	}
	query := tx.Where("published_at IS NULL AND terminal_at IS NULL").
		Order("created_at ASC, id ASC").
		Limit(limit)
	if tx.Dialector != nil && tx.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked})
	}
	var rows []models.OutboxEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return r.mark(tx, id, map[string]any{
		"published_at": r.now().UTC(),
		"last_error":   nil,
	})
}

func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	return r.mark(tx, id, r.attempt(cause))
}

// MarkTerminalTx stops retrying the row and keeps the final error for inspection.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error) error {
	fields := r.attempt(cause)
	fields["terminal_at"] = r.now().UTC()
	return r.mark(tx, id, fields)
}

func (r *Repository) attempt(cause error) map[string]any {
	return map[string]any{
		"last_error":    lastError(cause),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	}
}

func (r *Repository) mark(tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	if tx == nil {
		return errNoTx
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields).Error
}

// lastError caps the stored message and never splits a multi-byte rune.
func lastError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) <= maxLastErrorLen {
		return msg
	}
	return strings.ToValidUTF8(msg[:maxLastErrorLen], "")
}
