package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"grammardrill/internal/database"
	"grammardrill/internal/models"
)

// SessionRepository persists quiz sessions in the quiz_sessions table.
// Index sets and the presentation order are stored as JSON integer arrays.
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func encodeIndices(set []int) (string, error) {
	if set == nil {
		set = []int{}
	}
	b, err := json.Marshal(set)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeIndices(raw string) ([]int, error) {
	set := []int{}
	if raw == "" {
		return set, nil
	}
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, err
	}
	return set, nil
}

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.QuizSession) error {
	order, mastered, practicing, err := encodeState(session.State)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO quiz_sessions (id, drill_id, notify_email, total_questions, presentation_order,
			cursor_pos, first_pass_done, mastered, practicing, last_shown, current_index,
			last_answered, total_attempts, correct_attempts, completed, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	st := session.State
	_, err = r.db.ExecContext(ctx, query,
		session.ID,
		session.DrillID,
		session.NotifyEmail,
		st.Total,
		order,
		st.Cursor,
		st.FirstPassDone,
		mastered,
		practicing,
		st.LastShown,
		st.Current,
		st.LastAnswered,
		st.TotalAttempts,
		st.CorrectAttempts,
		st.Completed,
		session.CreatedAt,
		session.UpdatedAt,
		nullTime(session.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID, or nil if it does not exist
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*models.QuizSession, error) {
	query := `
		SELECT id, drill_id, notify_email, total_questions, presentation_order, cursor_pos,
		       first_pass_done, mastered, practicing, last_shown, current_index, last_answered,
		       total_attempts, correct_attempts, completed, created_at, updated_at, completed_at
		FROM quiz_sessions
		WHERE id = ?
	`

	session := &models.QuizSession{}
	st := &session.State
	var (
		order, mastered, practicing string
		completedAt                 sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.ID,
		&session.DrillID,
		&session.NotifyEmail,
		&st.Total,
		&order,
		&st.Cursor,
		&st.FirstPassDone,
		&mastered,
		&practicing,
		&st.LastShown,
		&st.Current,
		&st.LastAnswered,
		&st.TotalAttempts,
		&st.CorrectAttempts,
		&st.Completed,
		&session.CreatedAt,
		&session.UpdatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if st.Order, err = decodeIndices(order); err != nil {
		return nil, fmt.Errorf("failed to decode presentation order: %w", err)
	}
	if st.Mastered, err = decodeIndices(mastered); err != nil {
		return nil, fmt.Errorf("failed to decode mastered set: %w", err)
	}
	if st.Practicing, err = decodeIndices(practicing); err != nil {
		return nil, fmt.Errorf("failed to decode practicing set: %w", err)
	}
	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}

	return session, nil
}

// Update saves the state of an existing session
func (r *SessionRepository) Update(ctx context.Context, session *models.QuizSession) error {
	order, mastered, practicing, err := encodeState(session.State)
	if err != nil {
		return err
	}

	query := `
		UPDATE quiz_sessions
		SET presentation_order = ?, cursor_pos = ?, first_pass_done = ?, mastered = ?, practicing = ?,
		    last_shown = ?, current_index = ?, last_answered = ?, total_attempts = ?,
		    correct_attempts = ?, completed = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`
	st := session.State
	_, err = r.db.ExecContext(ctx, query,
		order,
		st.Cursor,
		st.FirstPassDone,
		mastered,
		practicing,
		st.LastShown,
		st.Current,
		st.LastAnswered,
		st.TotalAttempts,
		st.CorrectAttempts,
		st.Completed,
		session.UpdatedAt,
		nullTime(session.CompletedAt),
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM quiz_sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByDrill removes every session of a drill
func (r *SessionRepository) DeleteByDrill(ctx context.Context, drillID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM quiz_sessions WHERE drill_id = ?", drillID); err != nil {
		return fmt.Errorf("failed to delete drill sessions: %w", err)
	}
	return nil
}

// DeleteStale removes sessions not touched since before idleCutoff, and
// completed sessions not touched since before completedCutoff
func (r *SessionRepository) DeleteStale(ctx context.Context, idleCutoff, completedCutoff time.Time) (int64, error) {
	query := fmt.Sprintf(
		"DELETE FROM quiz_sessions WHERE updated_at < ? OR (completed = %s AND updated_at < ?)",
		r.db.GetDialect().BoolValue(true),
	)
	result, err := r.db.ExecContext(ctx, query, idleCutoff, completedCutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale sessions: %w", err)
	}
	return result.RowsAffected()
}

func encodeState(st models.QuizState) (order, mastered, practicing string, err error) {
	if order, err = encodeIndices(st.Order); err != nil {
		return "", "", "", fmt.Errorf("failed to encode presentation order: %w", err)
	}
	if mastered, err = encodeIndices(st.Mastered); err != nil {
		return "", "", "", fmt.Errorf("failed to encode mastered set: %w", err)
	}
	if practicing, err = encodeIndices(st.Practicing); err != nil {
		return "", "", "", fmt.Errorf("failed to encode practicing set: %w", err)
	}
	return order, mastered, practicing, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
