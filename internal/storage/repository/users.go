package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/clubpass/club-access-bot/internal/models"
)

// GetUserByTelegramID возвращает пользователя по его telegram id.
// Второй результат false означает, что пользователь не зарегистрирован.
func (s *Storage) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, bool, error) {
	const op = "storage.GetUserByTelegramID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, telegram_id, username, full_name, activity_field, company,
			      role_in_company, contact_number, participation_purpose,
			      registration_date, last_activity, is_active,
			      consent_given, consent_date, is_in_paid_channel, paid_channel_join_date
			  FROM users WHERE telegram_id = $1`
	row := s.DB.QueryRowContext(ctx, query, telegramID)

	var u models.User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FullName, &u.ActivityField,
		&u.Company, &u.RoleInCompany, &u.ContactNumber, &u.ParticipationPurpose,
		&u.RegistrationDate, &u.LastActivity, &u.IsActive,
		&u.ConsentGiven, &u.ConsentDate, &u.IsInPaidChannel, &u.PaidChannelJoinDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &u, true, nil
}

// GetUserTelegramID возвращает telegram id пользователя по внутреннему id.
// Второй результат false означает, что пользователя нет.
func (s *Storage) GetUserTelegramID(ctx context.Context, id int64) (int64, bool, error) {
	const op = "storage.GetUserTelegramID"
	select {
	case <-ctx.Done():
		return 0, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var telegramID int64
	err := s.DB.QueryRowContext(ctx, `SELECT telegram_id FROM users WHERE id = $1`, id).Scan(&telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return telegramID, true, nil
}

// UpsertUser создаёт пользователя или обновляет существующую запись
// по telegram_id, фиксируя согласие на обработку данных. Возвращает id строки.
func (s *Storage) UpsertUser(ctx context.Context, telegramID int64, username string, consentAt time.Time) (int64, error) {
	const op = "storage.UpsertUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (telegram_id, username, registration_date, last_activity,
			      is_active, consent_given, consent_date)
			  VALUES ($1, $2, $3, $3, true, true, $3)
			  ON CONFLICT (telegram_id) DO UPDATE
			  SET username = EXCLUDED.username,
			      last_activity = EXCLUDED.last_activity,
			      is_active = true,
			      consent_given = true,
			      consent_date = COALESCE(users.consent_date, EXCLUDED.consent_date)
			  RETURNING id`
	var id int64
	err := s.DB.QueryRowContext(ctx, query, telegramID, username, consentAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// UpdateProfile записывает анкетные поля пользователя по telegram id.
func (s *Storage) UpdateProfile(ctx context.Context, telegramID int64, profile models.Profile) error {
	const op = "storage.UpdateProfile"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET full_name = $1, activity_field = $2, company = $3,
			      role_in_company = $4, contact_number = $5, participation_purpose = $6,
			      last_activity = now()
			  WHERE telegram_id = $7`
	result, err := s.DB.ExecContext(ctx, query,
		profile.FullName, profile.ActivityField, profile.Company,
		profile.RoleInCompany, profile.ContactNumber, profile.ParticipationPurpose,
		telegramID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}

// TouchLastActivity обновляет отметку последней активности пользователя.
func (s *Storage) TouchLastActivity(ctx context.Context, telegramID int64) error {
	const op = "storage.TouchLastActivity"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET last_activity = now() WHERE telegram_id = $1`
	if _, err := s.DB.ExecContext(ctx, query, telegramID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetPaidChannelStatus отмечает нахождение пользователя в платном канале.
func (s *Storage) SetPaidChannelStatus(ctx context.Context, userID int64, inChannel bool, at time.Time) error {
	const op = "storage.SetPaidChannelStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var err error
	if inChannel {
		query := `UPDATE users SET is_in_paid_channel = true, paid_channel_join_date = $2 WHERE id = $1`
		_, err = s.DB.ExecContext(ctx, query, userID, at)
	} else {
		query := `UPDATE users SET is_in_paid_channel = false, paid_channel_join_date = NULL WHERE id = $1`
		_, err = s.DB.ExecContext(ctx, query, userID)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteUser удаляет пользователя по id вместе с зависимыми записями
// и возвращает количество удалённых строк.
func (s *Storage) DeleteUser(ctx context.Context, id int64) (int, error) {
	const op = "storage.DeleteUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM users WHERE id = $1`
	result, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListUsers возвращает список пользователей с пагинацией.
func (s *Storage) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, telegram_id, username, full_name, activity_field, company,
			      role_in_company, contact_number, participation_purpose,
			      registration_date, last_activity, is_active,
			      consent_given, consent_date, is_in_paid_channel, paid_channel_join_date
			  FROM users
			  ORDER BY id
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FullName, &u.ActivityField,
			&u.Company, &u.RoleInCompany, &u.ContactNumber, &u.ParticipationPurpose,
			&u.RegistrationDate, &u.LastActivity, &u.IsActive,
			&u.ConsentGiven, &u.ConsentDate, &u.IsInPaidChannel, &u.PaidChannelJoinDate); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DashboardStats сводные счётчики для панели администратора.
type DashboardStats struct {
	TotalUsers          int64
	ActiveSubscriptions int64
	InPaidChannel       int64
	PendingPayments     int64
	SucceededPayments   int64
	RevenueTotal        int64
}

// CountDashboardStats собирает сводку по пользователям, подпискам и платежам.
func (s *Storage) CountDashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error) {
	const op = "storage.CountDashboardStats"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT
			      (SELECT count(*) FROM users),
			      (SELECT count(*) FROM subscriptions WHERE is_active = true AND end_date > $1),
			      (SELECT count(*) FROM users WHERE is_in_paid_channel = true),
			      (SELECT count(*) FROM payments WHERE status = 'pending'),
			      (SELECT count(*) FROM payments WHERE status = 'success'),
			      (SELECT COALESCE(sum(amount), 0) FROM payments WHERE status = 'success')`
	var st DashboardStats
	err := s.DB.QueryRowContext(ctx, query, now).Scan(
		&st.TotalUsers, &st.ActiveSubscriptions, &st.InPaidChannel,
		&st.PendingPayments, &st.SucceededPayments, &st.RevenueTotal)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &st, nil
}
