package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jthurman/localhive/internal/database"
	"github.com/jthurman/localhive/internal/models"
)

type LoginChallengeRepository struct {
	pool *pgxpool.Pool
}

func NewLoginChallengeRepository(db *database.DB) *LoginChallengeRepository {
	return &LoginChallengeRepository{pool: db.Pool}
}

// Create opens a new second-factor challenge with the given lifetime
func (r *LoginChallengeRepository) Create(ctx context.Context, userID string, ttl time.Duration) (*models.LoginChallenge, error) {
	challenge := &models.LoginChallenge{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	challenge.ExpiresAt = challenge.CreatedAt.Add(ttl)

	query := `
		INSERT INTO login_challenges (id, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query,
		challenge.ID, challenge.UserID, challenge.CreatedAt, challenge.ExpiresAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return challenge, nil
}

func (r *LoginChallengeRepository) GetByID(ctx context.Context, id string) (*models.LoginChallenge, error) {
	query := `
		SELECT id, user_id, created_at, expires_at, consumed_at
		FROM login_challenges WHERE id = $1
	`

	var c models.LoginChallenge
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.CreatedAt, &c.ExpiresAt, &c.ConsumedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &c, nil
}

// Consume marks a challenge as used. The conditional update makes consumption
// atomic: two concurrent verifications cannot both succeed on one challenge.
func (r *LoginChallengeRepository) Consume(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE login_challenges SET consumed_at = $1
		WHERE id = $2 AND consumed_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrChallengeUsed
	}

	return nil
}

// DeleteForUser discards any outstanding challenges for a user
func (r *LoginChallengeRepository) DeleteForUser(ctx context.Context, userID string) error {
	query := `DELETE FROM login_challenges WHERE user_id = $1`

	_, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}

	return nil
}

// DeleteExpired removes challenges past their expiry
func (r *LoginChallengeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM login_challenges WHERE expires_at < $1`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}

	return result.RowsAffected(), nil
}
