package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitTrackAPI/internal/apperr"
	"fitTrackAPI/internal/types/measurement"
)

type MeasurementService struct {
	db *pgxpool.Pool
}

func NewMeasurementService(db *pgxpool.Pool) *MeasurementService {
	return &MeasurementService{db: db}
}

func (s *MeasurementService) CreateMeasurement(ctx context.Context, userID uuid.UUID, req *measurement.CreateMeasurementRequest) (*measurement.Measurement, error) {
	now := time.Now().UTC()
	m := &measurement.Measurement{
		ID:              uuid.New(),
		UserID:          userID,
		Weight:          req.Weight,
		BodyFat:         req.BodyFat,
		Chest:           req.Chest,
		Waist:           req.Waist,
		Notes:           req.Notes,
		MeasurementDate: now,
		CreatedAt:       now,
	}
	if req.MeasurementDate != nil {
		m.MeasurementDate = req.MeasurementDate.UTC()
	}

	query := `
	INSERT INTO measurements (id, user_id, weight, body_fat, chest, waist, notes, measurement_date, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.Exec(ctx, query, m.ID, m.UserID, m.Weight, m.BodyFat, m.Chest, m.Waist, m.Notes, m.MeasurementDate, m.CreatedAt)
	if err != nil {
		return nil, apperr.Internal("failed to create progress entry", err)
	}
	return m, nil
}

// ListMeasurements returns userID's entries newest first. A limit of zero
// returns all of them.
func (s *MeasurementService) ListMeasurements(ctx context.Context, userID uuid.UUID, limit int) ([]*measurement.Measurement, error) {
	query := `
	SELECT id, user_id, weight, body_fat, chest, waist, notes, measurement_date, created_at
	FROM measurements
	WHERE user_id = $1
	ORDER BY measurement_date DESC, created_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Internal("failed to list progress entries", err)
	}
	defer rows.Close()

	entries := []*measurement.Measurement{}
	for rows.Next() {
		m := &measurement.Measurement{}
		err := rows.Scan(&m.ID, &m.UserID, &m.Weight, &m.BodyFat, &m.Chest, &m.Waist,
			&m.Notes, &m.MeasurementDate, &m.CreatedAt)
		if err != nil {
			return nil, apperr.Internal("failed to scan progress entry", err)
		}
		entries = append(entries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to list progress entries", err)
	}
	return entries, nil
}

func (s *MeasurementService) Summary(ctx context.Context, userID uuid.UUID) (*measurement.Summary, error) {
	entries, err := s.ListMeasurements(ctx, userID, measurement.SummaryLimit)
	if err != nil {
		return nil, err
	}
	summary := measurement.Summarize(entries)
	if summary == nil {
		return nil, apperr.NotFound("No progress data found")
	}
	return summary, nil
}
