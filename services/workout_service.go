package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitTrackAPI/internal/apperr"
	"fitTrackAPI/internal/types/workout"
)

type WorkoutService struct {
	db *pgxpool.Pool
}

func NewWorkoutService(db *pgxpool.Pool) *WorkoutService {
	return &WorkoutService{db: db}
}

func (s *WorkoutService) CreateWorkout(ctx context.Context, userID uuid.UUID, req *workout.CreateWorkoutRequest) (*workout.Workout, error) {
	w := &workout.Workout{
		ID:       uuid.New(),
		UserID:   userID,
		Type:     req.Type,
		Duration: req.Duration,
		Calories: *req.Calories,
		Date:     time.Now().UTC(),
	}
	if req.Date != nil {
		w.Date = req.Date.UTC()
	}

	query := `
	INSERT INTO workouts (id, user_id, type, duration, calories, date)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := s.db.Exec(ctx, query, w.ID, w.UserID, w.Type, w.Duration, w.Calories, w.Date); err != nil {
		return nil, apperr.Internal("failed to create workout", err)
	}
	return w, nil
}

func (s *WorkoutService) ListWorkouts(ctx context.Context, userID uuid.UUID) ([]*workout.Workout, error) {
	rows, err := s.db.Query(ctx, `
	SELECT id, user_id, type, duration, calories, date
	FROM workouts
	WHERE user_id = $1
	ORDER BY date DESC
	`, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list workouts", err)
	}
	defer rows.Close()

	workouts := []*workout.Workout{}
	for rows.Next() {
		w := &workout.Workout{}
		if err := rows.Scan(&w.ID, &w.UserID, &w.Type, &w.Duration, &w.Calories, &w.Date); err != nil {
			return nil, apperr.Internal("failed to scan workout", err)
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal("failed to list workouts", err)
	}
	return workouts, nil
}
