package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/EquidnaMX/stag-herd/internal/payment/domain"
)

const uniqueViolation = "23505"

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	err := db.WithContext(ctx).Create(payment).Error
	if isUniqueViolation(err) {
		return domain.ErrDuplicatePaymentMethodID
	}
	return err
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Where("id_payment = ?", id).Take(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) FindByMethodID(ctx context.Context, db *gorm.DB, method domain.Method, methodID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).
		Where("method = ? AND method_id = ?", method, methodID).
		Take(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) MethodIDExists(ctx context.Context, db *gorm.DB, method domain.Method, methodID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("method = ? AND method_id = ?", method, methodID).
		Count(&count).Error
	return count > 0, err
}

// TransitionStatus is a compare-and-swap on status. A false result means
// another writer moved the payment first.
func (r *repo) TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from domain.Status, to domain.Status, executedAt *time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, dt_executed = ?, updated_at = ?
		 WHERE id_payment = ? AND status = ?`,
		to,
		executedAt,
		time.Now().UTC(),
		id,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteOrphans removes payments with no order reference.
func (r *repo) DeleteOrphans(ctx context.Context, db *gorm.DB) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM payments WHERE id_order IS NULL OR id_order = ''`,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB, filter domain.PendingFilter) ([]domain.Payment, error) {
	query := db.WithContext(ctx).
		Where("status = ?", domain.StatusPending).
		Order("dt_registration ASC").
		Order("id_payment ASC")
	if filter.Since != nil {
		query = query.Where("dt_registration >= ?", *filter.Since)
	}
	if filter.Before != nil {
		query = query.Where("dt_registration < ?", *filter.Before)
	}
	if len(filter.Methods) > 0 {
		query = query.Where("method IN ?", filter.Methods)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var payments []domain.Payment
	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// MarkPendingBefore moves every payment still PENDING and registered before
// cutoff to status in one statement.
func (r *repo) MarkPendingBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, status domain.Status, executedAt time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, dt_executed = ?, updated_at = ?
		 WHERE status = ? AND dt_registration < ?`,
		status,
		executedAt,
		executedAt,
		domain.StatusPending,
		cutoff,
	)
	return result.RowsAffected, result.Error
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
