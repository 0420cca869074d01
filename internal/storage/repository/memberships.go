package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clubpass/club-access-bot/internal/models"
)

// UpsertMembership записывает наблюдённое событие членства в канале.
// На пару (user_id, channel_type) ведётся одна актуальная строка:
// вступление обновляет joined_at и сбрасывает left_at, выход проставляет
// left_at и снимает is_current.
func (s *Storage) UpsertMembership(ctx context.Context, ev models.MembershipEvent) error {
	const op = "storage.UpsertMembership"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM channel_memberships
		 WHERE user_id = $1 AND channel_type = $2
		 FOR UPDATE`,
		ev.UserID, ev.ChannelType).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		var leftAt any
		if !ev.Joined {
			leftAt = ev.OccurredAt
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO channel_memberships (user_id, username, full_name, channel_type,
			     channel_id, channel_title, status, joined_at, left_at, is_current, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $8)`,
			ev.UserID, ev.Username, ev.FullName, ev.ChannelType,
			ev.ChannelID, ev.ChannelTitle, ev.Status, ev.OccurredAt, leftAt, ev.Joined)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	default:
		if ev.Joined {
			_, err = tx.ExecContext(ctx,
				`UPDATE channel_memberships
				 SET username = $2, full_name = $3, channel_id = $4, channel_title = $5,
				     status = $6, joined_at = $7, left_at = NULL, is_current = true, updated_at = $7
				 WHERE id = $1`,
				id, ev.Username, ev.FullName, ev.ChannelID, ev.ChannelTitle, ev.Status, ev.OccurredAt)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE channel_memberships
				 SET username = $2, full_name = $3, status = $4,
				     left_at = $5, is_current = false, updated_at = $5
				 WHERE id = $1`,
				id, ev.Username, ev.FullName, ev.Status, ev.OccurredAt)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CountCurrentMembers возвращает число актуальных участников канала по записям.
func (s *Storage) CountCurrentMembers(ctx context.Context, channelType models.ChannelType) (int64, error) {
	const op = "storage.CountCurrentMembers"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT count(*) FROM channel_memberships
			  WHERE channel_type = $1 AND is_current = true`
	var count int64
	if err := s.DB.QueryRowContext(ctx, query, channelType).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
