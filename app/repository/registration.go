package repository

import (
	"context"
	"database/sql"

	"github.com/regpay/ms-go-payment-relay/app/entity"
)

type RegistrationRepository struct {
	db DBTX
}

func NewRegistrationRepository(db DBTX) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Upsert inserts or overwrites the registration keyed by reg_id. Repeated
// inits with the same reg_id are last-write-wins.
func (r *RegistrationRepository) Upsert(ctx context.Context, registration *entity.Registration) error {
	query := `
		INSERT INTO registrations (
			reg_id, fa_response_id, customer_name, customer_email, phone, course,
			amount_minor, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			fa_response_id = VALUES(fa_response_id),
			customer_name = VALUES(customer_name),
			customer_email = VALUES(customer_email),
			phone = VALUES(phone),
			course = VALUES(course),
			amount_minor = VALUES(amount_minor),
			updated_at = VALUES(updated_at)
	`

	_, err := r.db.ExecContext(ctx, query,
		registration.RegID,
		registration.FAResponseID,
		registration.CustomerName,
		registration.CustomerEmail,
		registration.Phone,
		registration.Course,
		registration.AmountMinor,
		registration.CreatedAt,
		registration.UpdatedAt,
	)
	return err
}

func (r *RegistrationRepository) FindByRegID(ctx context.Context, regID string) (*entity.Registration, error) {
	query := `
		SELECT id, reg_id, fa_response_id, customer_name, customer_email, phone, course,
			amount_minor, created_at, updated_at
		FROM registrations
		WHERE reg_id = ?
		LIMIT 1
	`

	registration := &entity.Registration{}
	err := r.db.QueryRowContext(ctx, query, regID).Scan(
		&registration.ID,
		&registration.RegID,
		&registration.FAResponseID,
		&registration.CustomerName,
		&registration.CustomerEmail,
		&registration.Phone,
		&registration.Course,
		&registration.AmountMinor,
		&registration.CreatedAt,
		&registration.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return registration, nil
}
