package fraud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/richxcame/safari-bookings/pkg/database"
)

// Repository reads the user, review and booking history the analyzers need
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new fraud repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves the account creation time of a user
func (r *Repository) GetUserByID(ctx context.Context, userID uuid.UUID) (*UserRecord, error) {
	query := `SELECT id, created_at FROM users WHERE id = $1`

	user, err := database.RetryableQueryRow(ctx, r.db, query, []interface{}{userID}, func(row pgx.Row) (*UserRecord, error) {
		var u UserRecord
		if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
			return nil, err
		}
		return &u, nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	return user, nil
}

// GetReviewsByUser retrieves a user's reviews, newest first
func (r *Repository) GetReviewsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]ReviewRecord, error) {
	query := `
		SELECT id, user_id, COALESCE(title, ''), content, rating, created_at
		FROM reviews
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get reviews for user %s: %w", userID, err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

// CountVerifiedBookings counts the user's confirmed or completed bookings
func (r *Repository) CountVerifiedBookings(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE user_id = $1 AND status IN ('confirmed', 'completed')
	`

	count, err := database.RetryableQueryRow(ctx, r.db, query, []interface{}{userID}, func(row pgx.Row) (int, error) {
		var n int
		err := row.Scan(&n)
		return n, err
	})
	if err != nil {
		return 0, fmt.Errorf("count verified bookings for user %s: %w", userID, err)
	}
	return count, nil
}

// GetBookingByID retrieves the dates of a booking
func (r *Repository) GetBookingByID(ctx context.Context, bookingID uuid.UUID) (*BookingRecord, error) {
	query := `
		SELECT id, user_id, status, end_date, check_out
		FROM bookings
		WHERE id = $1
	`

	booking, err := database.RetryableQueryRow(ctx, r.db, query, []interface{}{bookingID}, func(row pgx.Row) (*BookingRecord, error) {
		var b BookingRecord
		if err := row.Scan(&b.ID, &b.UserID, &b.Status, &b.EndDate, &b.CheckOut); err != nil {
			return nil, err
		}
		return &b, nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", bookingID, err)
	}
	return booking, nil
}

// SearchReviewsByText runs a full-text search for reviews similar to snippet
func (r *Repository) SearchReviewsByText(ctx context.Context, snippet string, limit int) ([]ReviewRecord, error) {
	query := `
		SELECT id, user_id, COALESCE(title, ''), content, rating, created_at
		FROM reviews
		WHERE to_tsvector('english', content) @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(to_tsvector('english', content), plainto_tsquery('english', $1)) DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, snippet, limit)
	if err != nil {
		return nil, fmt.Errorf("search reviews: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

// GetFraudStatistics aggregates the risk scores of reviews created since the given time
func (r *Repository) GetFraudStatistics(ctx context.Context, since time.Time) (*FraudStatistics, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE fraud_risk_score > 60),
			COUNT(*) FILTER (WHERE fraud_risk_score > 80),
			COALESCE(AVG(fraud_risk_score), 0)::float8
		FROM reviews
		WHERE created_at >= $1 AND fraud_risk_score IS NOT NULL
	`

	stats, err := database.RetryableQueryRow(ctx, r.db, query, []interface{}{since}, func(row pgx.Row) (*FraudStatistics, error) {
		var s FraudStatistics
		if err := row.Scan(&s.TotalReviews, &s.FlaggedReviews, &s.HighRiskReviews, &s.AvgRiskScore); err != nil {
			return nil, err
		}
		return &s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get fraud statistics: %w", err)
	}
	stats.AvgRiskScore = round2(stats.AvgRiskScore)
	return stats, nil
}

func scanReviews(rows pgx.Rows) ([]ReviewRecord, error) {
	reviews := make([]ReviewRecord, 0)
	for rows.Next() {
		var rv ReviewRecord
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.Title, &rv.Content, &rv.Rating, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
