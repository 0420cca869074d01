package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clubpass/club-access-bot/internal/models"
)

// GetAdminByUsername возвращает активного администратора по имени.
// Второй результат false означает, что такого администратора нет.
func (s *Storage) GetAdminByUsername(ctx context.Context, username string) (*models.AdminUser, bool, error) {
	const op = "storage.GetAdminByUsername"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, username, password_hash, is_active
			  FROM admin_users
			  WHERE username = $1 AND is_active = true`
	row := s.DB.QueryRowContext(ctx, query, username)

	var admin models.AdminUser
	err := row.Scan(&admin.ID, &admin.Username, &admin.PasswordHash, &admin.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &admin, true, nil
}

// CreateDefaultAdmin заводит администратора по умолчанию, если админов
// ещё нет. Повторный вызов ничего не меняет.
func (s *Storage) CreateDefaultAdmin(ctx context.Context, username, passwordHash string) error {
	const op = "storage.CreateDefaultAdmin"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO admin_users (username, password_hash, is_active)
			  SELECT $1, $2, true
			  WHERE NOT EXISTS (SELECT 1 FROM admin_users)`
	if _, err := s.DB.ExecContext(ctx, query, username, passwordHash); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
