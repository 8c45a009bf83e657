package repositories

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dealdesk/internal/models"
)

var ErrNotFound = errors.New("deal not found")

type DealRepository struct {
	db  *sql.DB
	hub *subscriptionHub
}

func NewDealRepository(db *sql.DB, logger *zap.Logger) *DealRepository {
	r := &DealRepository{db: db}
	r.hub = newSubscriptionHub(r.ListByOwner, logger.Named("subscriptions"))
	return r
}

// Create inserts the deal; id and created_at come from the database.
func (r *DealRepository) Create(ctx context.Context, deal *models.Deal) (string, error) {
	query := `
        INSERT INTO deals (name, stage, owner_id)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	err := r.db.QueryRowContext(ctx, query,
		deal.Name,
		string(deal.Stage),
		deal.OwnerID,
	).Scan(&deal.ID, &deal.CreatedAt)
	if err != nil {
		return "", errors.Wrap(err, "could not create deal")
	}
	return deal.ID, nil
}

// GetByID returns nil, nil when there is no such deal.
func (r *DealRepository) GetByID(ctx context.Context, id string) (*models.Deal, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `
        SELECT id, name, stage, owner_id, created_at
        FROM deals
        WHERE id = $1
    `
	deal := &models.Deal{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&deal.ID,
		&deal.Name,
		&deal.Stage,
		&deal.OwnerID,
		&deal.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not get deal %s", id)
	}
	return deal, nil
}

// UpdateFields writes name and stage only.
func (r *DealRepository) UpdateFields(ctx context.Context, id string, fields models.DealFields) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.WithStack(ErrNotFound)
	}
	query := `UPDATE deals SET name = $1, stage = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, fields.Name, string(fields.Stage), id)
	if err != nil {
		return errors.Wrapf(err, "could not update deal %s", id)
	}
	return checkAffected(result, id)
}

func (r *DealRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.WithStack(ErrNotFound)
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM deals WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "could not delete deal %s", id)
	}
	return checkAffected(result, id)
}

// ListByOwner returns the owner's deals oldest first.
func (r *DealRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Deal, error) {
	query := `SELECT id, name, stage, owner_id, created_at
	          FROM deals
	          WHERE owner_id = $1
	          ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "could not list deals")
	}
	defer rows.Close()

	deals := make([]*models.Deal, 0)
	for rows.Next() {
		var d models.Deal
		if err := rows.Scan(&d.ID, &d.Name, &d.Stage, &d.OwnerID, &d.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "could not scan deal")
		}
		deals = append(deals, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	return deals, nil
}

// Subscribe opens a live query on the owner's deals. Changes are picked up
// from the deal_changes channel, see DealListener.
func (r *DealRepository) Subscribe(ctx context.Context, ownerID string, onChange func([]*models.Deal)) (func(), error) {
	return r.hub.subscribe(ctx, ownerID, onChange), nil
}

func checkAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "could not check affected rows")
	}
	if affected == 0 {
		return errors.Wrapf(ErrNotFound, "deal %s", id)
	}
	return nil
}
