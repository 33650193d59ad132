package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"grammardrill/internal/database"
	"grammardrill/internal/models"
)

// DrillRepository handles database operations for drills and their questions
type DrillRepository struct {
	db *database.DB
}

// NewDrillRepository creates a new drill repository
func NewDrillRepository(db *database.DB) *DrillRepository {
	return &DrillRepository{db: db}
}

const drillColumns = `id, filename, target_language, base_language, title, author, difficulty,
	description, grammar_concept, version, tags, question_count, upvotes, downvotes,
	content_hash, created_at, updated_at`

const questionColumns = `id, drill_id, order_index, full_sentence, target_word, prompt,
	grammar_concept, alternate_answers, hint, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDrill(row scanner) (*models.Drill, error) {
	d := &models.Drill{}
	err := row.Scan(
		&d.ID,
		&d.Filename,
		&d.TargetLanguage,
		&d.BaseLanguage,
		&d.Title,
		&d.Author,
		&d.Difficulty,
		&d.Description,
		&d.GrammarConcept,
		&d.Version,
		&d.Tags,
		&d.QuestionCount,
		&d.Upvotes,
		&d.Downvotes,
		&d.ContentHash,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// CreateWithQuestions inserts a drill and its questions in one transaction.
// Questions get order_index equal to their position.
func (r *DrillRepository) CreateWithQuestions(ctx context.Context, drill *models.Drill, questions []models.QuestionFields) (*models.Drill, error) {
	now := time.Now().UTC()
	created := *drill
	created.QuestionCount = len(questions)
	created.CreatedAt = now
	created.UpdatedAt = now

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := `
			INSERT INTO drill_files (filename, target_language, base_language, title, author, difficulty,
				description, grammar_concept, version, tags, question_count, upvotes, downvotes,
				content_hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		id, err := tx.ExecReturningID(ctx, query,
			created.Filename,
			created.TargetLanguage,
			created.BaseLanguage,
			created.Title,
			created.Author,
			string(created.Difficulty),
			created.Description,
			created.GrammarConcept,
			created.Version,
			created.Tags,
			created.QuestionCount,
			created.Upvotes,
			created.Downvotes,
			created.ContentHash,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to create drill: %w", err)
		}
		created.ID = id

		return insertQuestions(ctx, tx, id, questions, now)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func insertQuestions(ctx context.Context, db database.DBTX, drillID int64, questions []models.QuestionFields, now time.Time) error {
	query := `
		INSERT INTO questions (drill_id, order_index, full_sentence, target_word, prompt,
			grammar_concept, alternate_answers, hint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, q := range questions {
		_, err := db.ExecContext(ctx, query,
			drillID, i, q.FullSentence, q.TargetWord, q.Prompt,
			q.GrammarConcept, q.AlternateAnswers, q.Hint, now)
		if err != nil {
			return fmt.Errorf("failed to insert question %d: %w", i+1, err)
		}
	}
	return nil
}

// ReplaceContent overwrites a drill's metadata and questions atomically.
// It returns false when the drill does not exist.
func (r *DrillRepository) ReplaceContent(ctx context.Context, drillID int64, meta models.DrillMetadata, questions []models.QuestionFields, contentHash string) (bool, error) {
	found := false
	now := time.Now().UTC()

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := `
			UPDATE drill_files
			SET target_language = ?, base_language = ?, title = ?, author = ?, difficulty = ?,
				description = ?, grammar_concept = ?, version = ?, tags = ?, question_count = ?,
				content_hash = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := tx.ExecContext(ctx, query,
			meta.TargetLanguage, meta.BaseLanguage, meta.Title, meta.Author, string(meta.Difficulty),
			meta.Description, meta.GrammarConcept, meta.Version, meta.Tags, len(questions),
			contentHash, now, drillID)
		if err != nil {
			return fmt.Errorf("failed to update drill: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update drill: %w", err)
		}
		if rows == 0 {
			return nil
		}
		found = true

		if _, err := tx.ExecContext(ctx, "DELETE FROM questions WHERE drill_id = ?", drillID); err != nil {
			return fmt.Errorf("failed to delete old questions: %w", err)
		}
		return insertQuestions(ctx, tx, drillID, questions, now)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// GetByID retrieves a drill by ID, or nil if it does not exist
func (r *DrillRepository) GetByID(ctx context.Context, drillID int64) (*models.Drill, error) {
	query := "SELECT " + drillColumns + " FROM drill_files WHERE id = ?"
	drill, err := scanDrill(r.db.QueryRowContext(ctx, query, drillID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get drill: %w", err)
	}
	return drill, nil
}

// GetByContentHash finds a drill with identical canonical content
func (r *DrillRepository) GetByContentHash(ctx context.Context, hash string) (*models.Drill, error) {
	query := "SELECT " + drillColumns + " FROM drill_files WHERE content_hash = ?"
	drill, err := scanDrill(r.db.QueryRowContext(ctx, query, hash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get drill by hash: %w", err)
	}
	return drill, nil
}

// GetQuestions retrieves a drill's questions in order_index order
func (r *DrillRepository) GetQuestions(ctx context.Context, drillID int64) ([]models.Question, error) {
	query := "SELECT " + questionColumns + " FROM questions WHERE drill_id = ? ORDER BY order_index"
	rows, err := r.db.QueryContext(ctx, query, drillID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(
			&q.ID,
			&q.DrillID,
			&q.OrderIndex,
			&q.FullSentence,
			&q.TargetWord,
			&q.Prompt,
			&q.GrammarConcept,
			&q.AlternateAnswers,
			&q.Hint,
			&q.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate questions: %w", err)
	}

	return questions, nil
}

// List retrieves drills matching filter, newest first
func (r *DrillRepository) List(ctx context.Context, filter models.DrillFilter) ([]models.Drill, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := r.db.Dialect.CaseInsensitiveLike()
		pattern := "%" + search + "%"
		conditions = append(conditions, fmt.Sprintf(
			"(title %[1]s ? OR description %[1]s ? OR grammar_concept %[1]s ? OR tags %[1]s ?)", like))
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if lang := strings.TrimSpace(filter.TargetLanguage); lang != "" {
		conditions = append(conditions, "LOWER(target_language) = LOWER(?)")
		args = append(args, lang)
	}
	if filter.Difficulty != "" {
		conditions = append(conditions, "difficulty = ?")
		args = append(args, string(filter.Difficulty))
	}

	query := "SELECT " + drillColumns + " FROM drill_files"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query drills: %w", err)
	}
	defer rows.Close()

	drills := []models.Drill{}
	for rows.Next() {
		drill, err := scanDrill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan drill: %w", err)
		}
		drills = append(drills, *drill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drills: %w", err)
	}

	return drills, nil
}

// Delete removes a drill with its questions and sessions.
// It returns false when the drill does not exist.
func (r *DrillRepository) Delete(ctx context.Context, drillID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM drill_files WHERE id = ?", drillID)
	if err != nil {
		return false, fmt.Errorf("failed to delete drill: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete drill: %w", err)
	}
	return rows > 0, nil
}

// DeleteAll removes every drill, used before a backup restore
func (r *DrillRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM drill_files"); err != nil {
		return fmt.Errorf("failed to clear drills: %w", err)
	}
	return nil
}

// Vote increments the up or down counter of a drill.
// It returns false when the drill does not exist.
func (r *DrillRepository) Vote(ctx context.Context, drillID int64, up bool) (bool, error) {
	column := "downvotes"
	if up {
		column = "upvotes"
	}
	query := fmt.Sprintf("UPDATE drill_files SET %[1]s = %[1]s + 1 WHERE id = ?", column)

	result, err := r.db.ExecContext(ctx, query, drillID)
	if err != nil {
		return false, fmt.Errorf("failed to record vote: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record vote: %w", err)
	}
	return rows > 0, nil
}
