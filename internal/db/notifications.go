package db

import (
	"context"

	"github.com/linkupapp/linkup/internal/models"
)

// InsertNotification writes one notification row. A row with the same dedup
// key is left alone and false is returned.
func (t *Tx) InsertNotification(ctx context.Context, n *models.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (recipient_profile_id, actor_profile_id, kind, title, body,
		                           entity_type, entity_id, dedup_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (dedup_key) DO NOTHING
	`
	cmdTag, err := t.tx.Exec(ctx, query,
		n.RecipientProfileID,
		nullUUID(n.ActorProfileID),
		n.Kind,
		n.Title,
		n.Body,
		text(n.EntityType),
		text(n.EntityID),
		text(n.DedupKey),
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}
