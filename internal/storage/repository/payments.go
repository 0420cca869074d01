package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clubpass/club-access-bot/internal/models"
)

// CreatePayment вставляет новую строку платёжного журнала в статусе pending
// и возвращает её id. Повтор payment_id отклоняется уникальным индексом.
func (s *Storage) CreatePayment(ctx context.Context, payment models.Payment) (int64, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (user_id, payment_id, amount, currency, status, payment_method, created_at)
			  VALUES ($1, $2, $3, $4, 'pending', $5, $6)
			  RETURNING id`
	var newID int64
	err := s.DB.QueryRowContext(ctx, query,
		payment.UserID, payment.PaymentID, payment.Amount, payment.Currency,
		payment.PaymentMethod, payment.CreatedAt).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// FindPendingPayment возвращает ожидающий платёж по payment_id, созданный
// не раньше notBefore. Второй результат false — подходящего платежа нет:
// либо он не существует, либо уже обработан, либо слишком стар.
func (s *Storage) FindPendingPayment(ctx context.Context, paymentID string, notBefore time.Time) (*models.Payment, bool, error) {
	const op = "storage.FindPendingPayment"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, payment_id, amount, currency, status, payment_method, created_at, completed_at
			  FROM payments
			  WHERE payment_id = $1
			    AND status = 'pending'
			    AND created_at >= $2`
	row := s.DB.QueryRowContext(ctx, query, paymentID, notBefore)

	var p models.Payment
	err := row.Scan(&p.ID, &p.UserID, &p.PaymentID, &p.Amount, &p.Currency,
		&p.Status, &p.PaymentMethod, &p.CreatedAt, &p.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &p, true, nil
}

// MarkPaymentFailed переводит ожидающий платёж в статус failed.
// Возвращает количество изменённых строк: 0 означает, что платёж
// не существует или уже в терминальном статусе.
func (s *Storage) MarkPaymentFailed(ctx context.Context, paymentID string, now time.Time) (int, error) {
	const op = "storage.MarkPaymentFailed"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET status = 'failed', completed_at = $2
			  WHERE payment_id = $1 AND status = 'pending'`
	result, err := s.DB.ExecContext(ctx, query, paymentID, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListPayments возвращает строки платёжного журнала с пагинацией,
// новые первыми.
func (s *Storage) ListPayments(ctx context.Context, limit, offset int) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, payment_id, amount, currency, status, payment_method, created_at, completed_at
			  FROM payments
			  ORDER BY id DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.PaymentID, &p.Amount, &p.Currency,
			&p.Status, &p.PaymentMethod, &p.CreatedAt, &p.CompletedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
