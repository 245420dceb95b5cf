package postgres

import (
	"context"
	"strings"

	"github.com/baechuer/curation-service/internal/domain"
)

type InteractionRepo struct {
	db DB
}

func NewInteractionRepo(db DB) *InteractionRepo { return &InteractionRepo{db: db} }

// Append writes one event. Redelivered messages (same message_id) are
// ignored and reported as inserted=false.
func (r *InteractionRepo) Append(ctx context.Context, ev domain.InteractionEvent) (bool, error) {
	var msgID any
	if id := strings.TrimSpace(ev.MessageID); id != "" {
		msgID = id
	}
	tag, err := r.db.Exec(ctx, `
		INSERT INTO interaction_events (message_id, actor_user_id, target_entity_id, kind, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (message_id) DO NOTHING
	`, msgID, ev.ActorUserID, ev.TargetEntityID, string(ev.Kind), ev.OccurredAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
