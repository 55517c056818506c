package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PointsRepository reads loyalty point balances and credits refunds.
// Redemption happens inside BookedSlotRepository.Commit so the balance
// check and the seat insert share one transaction.
type PointsRepository struct {
	pool *pgxpool.Pool
}

func NewPointsRepository(pool *pgxpool.Pool) *PointsRepository {
	return &PointsRepository{pool: pool}
}

// Balance returns the student's point balance, zero for unknown students.
func (r *PointsRepository) Balance(ctx context.Context, studentID int64) (int64, error) {
	query := `SELECT balance FROM loyalty_points WHERE student_id = $1`

	var balance int64
	err := r.pool.QueryRow(ctx, query, studentID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get point balance: %w", err)
	}

	return balance, nil
}

// Grant credits points to a student, creating the row on first use.
func (r *PointsRepository) Grant(ctx context.Context, studentID, points int64) error {
	query := `
		INSERT INTO loyalty_points (student_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (student_id) DO UPDATE
		SET balance = loyalty_points.balance + EXCLUDED.balance, updated_at = now()
	`

	_, err := r.pool.Exec(ctx, query, studentID, points)
	if err != nil {
		return fmt.Errorf("grant points: %w", err)
	}

	return nil
}
