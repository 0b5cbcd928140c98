package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Registers the sqlite driver

	"github.com/studylog/fukushu/internal/domain"
)

const timeLayout = time.RFC3339Nano

// DB wraps the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// LoadTree reads the full subject tree into memory, ordered by position at
// every level. Unparseable timestamps are dropped from the affected question
// (logged, never fatal) so one bad row cannot block scheduling.
func (db *DB) LoadTree(ctx context.Context) (domain.Tree, error) {
	subjectRows, err := db.conn.QueryContext(ctx, `
		SELECT id, name, color FROM subjects ORDER BY position, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load subjects: %w", err)
	}
	defer subjectRows.Close()

	tree := domain.Tree{}
	for subjectRows.Next() {
		var s domain.Subject
		if err := subjectRows.Scan(&s.ID, &s.Name, &s.Color); err != nil {
			return nil, fmt.Errorf("failed to scan subject row: %w", err)
		}
		tree = append(tree, s)
	}
	if err := subjectRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subject rows: %w", err)
	}

	for i := range tree {
		chapters, err := db.loadChapters(ctx, tree[i].ID)
		if err != nil {
			return nil, err
		}
		tree[i].Chapters = chapters
	}
	return tree, nil
}

func (db *DB) loadChapters(ctx context.Context, subjectID string) ([]domain.Chapter, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, name FROM chapters WHERE subject_id = ? ORDER BY position, name
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chapters for subject %s: %w", subjectID, err)
	}
	defer rows.Close()

	var chapters []domain.Chapter
	for rows.Next() {
		var c domain.Chapter
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan chapter row: %w", err)
		}
		chapters = append(chapters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chapter rows: %w", err)
	}

	for i := range chapters {
		questions, err := db.loadQuestions(ctx, chapters[i].ID)
		if err != nil {
			return nil, err
		}
		chapters[i].Questions = questions
	}
	return chapters, nil
}

func (db *DB) loadQuestions(ctx context.Context, chapterID string) ([]domain.Question, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, text, understanding, previous_understanding, interval,
		       correct_rate, answer_count, last_answered, next_date, comment
		FROM questions WHERE chapter_id = ? ORDER BY position, id
	`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for chapter %s: %w", chapterID, err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var understanding, previous string
		var lastAnswered, nextDate sql.NullString
		if err := rows.Scan(
			&q.ID, &q.Text, &understanding, &previous, &q.Interval,
			&q.CorrectRate, &q.AnswerCount, &lastAnswered, &nextDate, &q.Comment,
		); err != nil {
			return nil, fmt.Errorf("failed to scan question row: %w", err)
		}
		q.Understanding = domain.ParseUnderstanding(understanding)
		q.PreviousUnderstanding = domain.ParseUnderstanding(previous)
		q.LastAnswered = parseNullableTime(q.ID, "last_answered", lastAnswered)
		q.NextDate = parseNullableTime(q.ID, "next_date", nextDate)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read question rows: %w", err)
	}
	return questions, nil
}

func parseNullableTime(questionID, column string, v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		slog.Warn("dropping unparseable timestamp",
			"question_id", questionID, "column", column, "value", v.String, "error", err)
		return nil
	}
	return &t
}

// LoadHistory reads the full answer log in insertion order. Records missing a
// question id or carrying an unparseable timestamp are skipped and logged.
func (db *DB) LoadHistory(ctx context.Context) ([]domain.AnswerRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, question_id, is_correct, understanding, timestamp
		FROM answer_history ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load answer history: %w", err)
	}
	defer rows.Close()

	history := []domain.AnswerRecord{}
	for rows.Next() {
		var r domain.AnswerRecord
		var ts string
		if err := rows.Scan(&r.ID, &r.QuestionID, &r.IsCorrect, &r.Understanding, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		parsed, err := time.Parse(timeLayout, ts)
		if err != nil || r.QuestionID == "" {
			slog.Warn("skipping malformed answer record", "record_id", r.ID, "timestamp", ts)
			continue
		}
		r.Timestamp = parsed
		history = append(history, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return history, nil
}

// ApplyAnswer stores one scheduler result: the question's updated summary
// fields and the appended history record, in a single transaction so no
// partial update is ever visible.
func (db *DB) ApplyAnswer(ctx context.Context, q *domain.Question, record domain.AnswerRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin answer transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE questions
		SET understanding = ?, previous_understanding = ?, interval = ?,
		    correct_rate = ?, answer_count = ?, last_answered = ?, next_date = ?
		WHERE id = ?
	`,
		q.Understanding.String(),
		q.PreviousUnderstanding.String(),
		q.Interval,
		q.CorrectRate,
		q.AnswerCount,
		formatNullableTime(q.LastAnswered),
		formatNullableTime(q.NextDate),
		q.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update question %s: %w", q.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrQuestionNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO answer_history (id, question_id, is_correct, understanding, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`,
		record.ID,
		record.QuestionID,
		record.IsCorrect,
		record.Understanding,
		record.Timestamp.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append answer record for %s: %w", q.ID, err)
	}

	return tx.Commit()
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(timeLayout)
}

// UpsertSubject inserts a subject or refreshes its display fields.
func (db *DB) UpsertSubject(ctx context.Context, s domain.Subject, position int) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO subjects (id, name, color, position) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, color = excluded.color, position = excluded.position
	`, s.ID, s.Name, s.Color, position)
	if err != nil {
		return fmt.Errorf("failed to upsert subject %s: %w", s.Name, err)
	}
	return nil
}

// UpsertChapter inserts a chapter or refreshes its display fields.
func (db *DB) UpsertChapter(ctx context.Context, subjectID string, c domain.Chapter, position int) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO chapters (id, subject_id, name, position) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET subject_id = excluded.subject_id, name = excluded.name, position = excluded.position
	`, c.ID, subjectID, c.Name, position)
	if err != nil {
		return fmt.Errorf("failed to upsert chapter %s: %w", c.Name, err)
	}
	return nil
}

// InsertQuestion inserts a new question with unset scheduling state.
func (db *DB) InsertQuestion(ctx context.Context, chapterID string, q domain.Question, position int, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO questions (id, chapter_id, text, interval, comment, position, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, q.ID, chapterID, q.Text, q.Interval, q.Comment, position, sourceID)
	if err != nil {
		return fmt.Errorf("failed to insert question %s: %w", q.ID, err)
	}
	return nil
}

// HasQuestion reports whether a question row exists.
func (db *DB) HasQuestion(ctx context.Context, id string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, `SELECT 1 FROM questions WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check question %s: %w", id, err)
	}
	return true, nil
}

// UpdateQuestionPlacement refreshes a surviving question's text, comment and
// position after a re-parse, leaving its scheduling state alone.
func (db *DB) UpdateQuestionPlacement(ctx context.Context, chapterID string, q domain.Question, position int, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE questions SET chapter_id = ?, text = ?, comment = ?, position = ?, source_id = ?
		WHERE id = ?
	`, chapterID, q.Text, q.Comment, position, sourceID, q.ID)
	if err != nil {
		return fmt.Errorf("failed to update question placement %s: %w", q.ID, err)
	}
	return nil
}

// QuestionIDsBySource lists the question ids associated with a source.
func (db *DB) QuestionIDsBySource(ctx context.Context, sourceID int64) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM questions WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions for source %d: %w", sourceID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan question id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteQuestion removes a question and its history.
func (db *DB) DeleteQuestion(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM answer_history WHERE question_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete history for question %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete question %s: %w", id, err)
	}
	return tx.Commit()
}

// Source is a deck origin, either a local directory or a git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullString
}

// InsertSource registers a new deck source and returns its id.
func (db *DB) InsertSource(ctx context.Context, path, sourceType string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (path, type) VALUES (?, ?)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path, or nil when absent.
func (db *DB) FindSourceByPath(ctx context.Context, path string) (*Source, error) {
	var s Source
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, path, type, last_scanned FROM sources WHERE path = ?
	`, path).Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all registered deck sources.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, path, type, last_scanned FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned stamps a source with the time of its last sync.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources SET last_scanned = ? WHERE id = ?
	`, time.Now().Format(timeLayout), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source registration. Its questions are kept.
func (db *DB) DeleteSource(ctx context.Context, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete source %d: %w", sourceID, err)
	}
	return nil
}
