package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clubpass/club-access-bot/internal/models"
)

// FindSubscriptionByUserID возвращает последнюю по id подписку пользователя.
// Второй результат false означает, что подписок у пользователя нет.
func (s *Storage) FindSubscriptionByUserID(ctx context.Context, userID int64) (*models.Subscription, bool, error) {
	const op = "storage.FindSubscriptionByUserID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, start_date, end_date, is_active, auto_renewal, payment_amount
			  FROM subscriptions
			  WHERE user_id = $1
			  ORDER BY id DESC
			  LIMIT 1`
	row := s.DB.QueryRowContext(ctx, query, userID)

	var sub models.Subscription
	err := row.Scan(&sub.ID, &sub.UserID, &sub.StartDate, &sub.EndDate,
		&sub.IsActive, &sub.AutoRenewal, &sub.PaymentAmount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, true, nil
}

// ConfirmPaymentAndExtend атомарно переводит платёж из pending в success
// и продлевает или создаёт подписку пользователя на duration. Перевод
// статуса и изменение подписки фиксируются одной транзакцией: либо оба,
// либо ни одного. Повторный вызов для того же платежа возвращает
// ErrPaymentNotFound, потому что строка уже не pending.
func (s *Storage) ConfirmPaymentAndExtend(ctx context.Context, paymentID string, duration time.Duration, now time.Time) (*models.ReconcileResult, error) {
	const op = "storage.ConfirmPaymentAndExtend"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var userID, amount int64
	err = tx.QueryRowContext(ctx,
		`UPDATE payments
		 SET status = 'success', completed_at = $2
		 WHERE payment_id = $1 AND status = 'pending'
		 RETURNING user_id, amount`,
		paymentID, now).Scan(&userID, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrPaymentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	endDate, extended, err := extendOrCreateTx(ctx, tx, userID, amount, duration, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var telegramID int64
	err = tx.QueryRowContext(ctx,
		`SELECT telegram_id FROM users WHERE id = $1`, userID).Scan(&telegramID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.ReconcileResult{
		UserID:     userID,
		TelegramID: telegramID,
		EndDate:    endDate,
		Amount:     amount,
		Extended:   extended,
	}, nil
}

// ExtendOrCreateSubscription продлевает действующую подписку пользователя
// на duration или создаёт новую от момента now. Используется панелью
// администратора для ручной выдачи доступа.
func (s *Storage) ExtendOrCreateSubscription(ctx context.Context, userID int64, duration time.Duration, now time.Time) (time.Time, error) {
	const op = "storage.ExtendOrCreateSubscription"
	select {
	case <-ctx.Done():
		return time.Time{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	endDate, _, err := extendOrCreateTx(ctx, tx, userID, 0, duration, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return endDate, nil
}

// extendOrCreateTx реализует общее правило продления внутри транзакции:
// действующая подписка продлевается от своей end_date, истёкшая или
// отсутствующая заменяется окном [now, now+duration). Строка подписки
// берётся под блокировку FOR UPDATE, чтобы параллельные платежи
// не потеряли продление.
func extendOrCreateTx(ctx context.Context, tx *sql.Tx, userID, amount int64, duration time.Duration, now time.Time) (time.Time, bool, error) {
	var (
		subID    int64
		endDate  time.Time
		isActive bool
	)
	err := tx.QueryRowContext(ctx,
		`SELECT id, end_date, is_active
		 FROM subscriptions
		 WHERE user_id = $1
		 ORDER BY id DESC
		 LIMIT 1
		 FOR UPDATE`,
		userID).Scan(&subID, &endDate, &isActive)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		newEnd := now.Add(duration)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO subscriptions (user_id, start_date, end_date, is_active, auto_renewal, payment_amount)
			 VALUES ($1, $2, $3, true, false, $4)`,
			userID, now, newEnd, amount)
		if err != nil {
			return time.Time{}, false, err
		}
		return newEnd, false, nil
	case err != nil:
		return time.Time{}, false, err
	}

	if isActive && endDate.After(now) {
		newEnd := endDate.Add(duration)
		_, err = tx.ExecContext(ctx,
			`UPDATE subscriptions SET end_date = $2, payment_amount = payment_amount + $3 WHERE id = $1`,
			subID, newEnd, amount)
		if err != nil {
			return time.Time{}, false, err
		}
		return newEnd, true, nil
	}

	newEnd := now.Add(duration)
	_, err = tx.ExecContext(ctx,
		`UPDATE subscriptions
		 SET start_date = $2, end_date = $3, is_active = true, payment_amount = $4
		 WHERE id = $1`,
		subID, now, newEnd, amount)
	if err != nil {
		return time.Time{}, false, err
	}
	return newEnd, false, nil
}

// SetAutoRenewal включает или выключает автопродление последней подписки
// пользователя. Возвращает количество изменённых строк.
func (s *Storage) SetAutoRenewal(ctx context.Context, userID int64, enabled bool) (int, error) {
	const op = "storage.SetAutoRenewal"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET auto_renewal = $2
			  WHERE id = (SELECT id FROM subscriptions WHERE user_id = $1 ORDER BY id DESC LIMIT 1)`
	result, err := s.DB.ExecContext(ctx, query, userID, enabled)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// CancelSubscription гасит последнюю подписку пользователя по его просьбе
// и выключает автопродление. Возвращает количество изменённых строк.
func (s *Storage) CancelSubscription(ctx context.Context, userID int64) (int, error) {
	const op = "storage.CancelSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET is_active = false, auto_renewal = false
			  WHERE id = (SELECT id FROM subscriptions WHERE user_id = $1 ORDER BY id DESC LIMIT 1)`
	result, err := s.DB.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// FindSubscriptionEntry возвращает подписку по id вместе с telegram id
// владельца. Второй результат false означает, что подписки нет.
func (s *Storage) FindSubscriptionEntry(ctx context.Context, subscriptionID int64) (*models.ExpiringEntry, bool, error) {
	const op = "storage.FindSubscriptionEntry"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.user_id, u.telegram_id, s.end_date
			  FROM subscriptions s
			  JOIN users u ON u.id = s.user_id
			  WHERE s.id = $1`
	var item models.ExpiringEntry
	err := s.DB.QueryRowContext(ctx, query, subscriptionID).
		Scan(&item.SubscriptionID, &item.UserID, &item.TelegramID, &item.EndDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &item, true, nil
}

// FindExpiring возвращает активные подписки с end_date в окне [start, end).
func (s *Storage) FindExpiring(ctx context.Context, start, end time.Time) ([]*models.ExpiringEntry, error) {
	const op = "storage.FindExpiring"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.user_id, u.telegram_id, s.end_date
			  FROM subscriptions s
			  JOIN users u ON u.id = s.user_id
			  WHERE s.is_active = true
			    AND s.end_date >= $1
			    AND s.end_date < $2`
	return s.queryExpiring(ctx, op, query, start, end)
}

// FindExpired возвращает активные подписки, чья end_date уже в прошлом.
func (s *Storage) FindExpired(ctx context.Context, now time.Time) ([]*models.ExpiringEntry, error) {
	const op = "storage.FindExpired"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT s.id, s.user_id, u.telegram_id, s.end_date
			  FROM subscriptions s
			  JOIN users u ON u.id = s.user_id
			  WHERE s.is_active = true
			    AND s.end_date <= $1`
	return s.queryExpiring(ctx, op, query, now)
}

func (s *Storage) queryExpiring(ctx context.Context, op, query string, args ...any) ([]*models.ExpiringEntry, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ExpiringEntry
	for rows.Next() {
		var item models.ExpiringEntry
		if err := rows.Scan(&item.SubscriptionID, &item.UserID, &item.TelegramID, &item.EndDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeactivateAndClear атомарно гасит подписку и снимает у пользователя
// флаг нахождения в платном канале. Вызывается после успешного
// исключения из канала, чтобы запись не разошлась с фактом.
func (s *Storage) DeactivateAndClear(ctx context.Context, subscriptionID, userID int64) error {
	const op = "storage.DeactivateAndClear"
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

	if _, err = tx.ExecContext(ctx,
		`UPDATE subscriptions SET is_active = false WHERE id = $1`, subscriptionID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET is_in_paid_channel = false, paid_channel_join_date = NULL WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSubscriptions возвращает подписки с данными пользователей для панели
// администратора, с пагинацией.
func (s *Storage) ListSubscriptions(ctx context.Context, limit, offset int) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, start_date, end_date, is_active, auto_renewal, payment_amount
			  FROM subscriptions
			  ORDER BY id DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		var sub models.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.StartDate, &sub.EndDate,
			&sub.IsActive, &sub.AutoRenewal, &sub.PaymentAmount); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
