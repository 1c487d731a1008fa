package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/overklassniy/stankin-schedule/store"
)

func (d *DB) CreateDelivery(ctx context.Context, create *store.Delivery) (*store.Delivery, error) {
	fields := []string{"chat_id", "date", "kind", "content_hash", "message_id"}
	args := []any{create.ChatID, create.Date, string(create.Kind), create.ContentHash, create.MessageID}

	if create.SentTs != 0 {
		fields = append(fields, "sent_ts")
		args = append(args, create.SentTs)
	}

	stmt := `INSERT INTO delivery (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id, sent_ts`

	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID, &create.SentTs); err != nil {
		return nil, errors.Wrap(err, "failed to create delivery")
	}
	return create, nil
}

func (d *DB) ListDeliveries(ctx context.Context, find *store.FindDelivery) ([]*store.Delivery, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ChatID; v != nil {
		where, args = append(where, "delivery.chat_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Date; v != nil {
		where, args = append(where, "delivery.date = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Kind; v != nil {
		where, args = append(where, "delivery.kind = "+placeholder(len(args)+1)), append(args, string(*v))
	}

	query := `
		SELECT id, chat_id, date, kind, content_hash, message_id, sent_ts
		FROM delivery
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY delivery.sent_ts DESC, delivery.id DESC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query deliveries")
	}
	defer rows.Close()

	list := make([]*store.Delivery, 0)
	for rows.Next() {
		var delivery store.Delivery
		var kind string
		if err := rows.Scan(
			&delivery.ID,
			&delivery.ChatID,
			&delivery.Date,
			&kind,
			&delivery.ContentHash,
			&delivery.MessageID,
			&delivery.SentTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan delivery")
		}
		delivery.Kind = store.DeliveryKind(kind)
		list = append(list, &delivery)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteDeliveries(ctx context.Context, delete *store.DeleteDelivery) (int64, error) {
	result, err := d.db.ExecContext(ctx, "DELETE FROM delivery WHERE sent_ts < "+placeholder(1), delete.SentBefore)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete deliveries")
	}
	return result.RowsAffected()
}
