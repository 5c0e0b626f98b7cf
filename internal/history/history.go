// Package history indexes recorded iterations of every session in SQLite.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Row is one recorded iteration
type Row struct {
	Iteration          int       `json:"iteration"`
	Timestamp          time.Time `json:"timestamp"`
	DecisionType       string    `json:"decision_type"`
	Instruction        string    `json:"instruction"`
	Reason             string    `json:"reason"`
	Success            bool      `json:"success"`
	Output             string    `json:"output"`
	VerificationPassed bool      `json:"verification_passed"`
	Score              float64   `json:"verification_score"`
}

// Session summarizes the rows stored for one session
type Session struct {
	ID         string    `json:"session_id"`
	FirstAt    time.Time `json:"first_at"`
	LastAt     time.Time `json:"last_at"`
	Iterations int       `json:"iterations"`
	Successes  int       `json:"successes"`
}

// Store manages the iteration index in SQLite
type Store struct {
	DBPath string
	db     *sql.DB
}

// Open opens or creates the history database
func Open(path string) (*Store, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{DBPath: absPath, db: db}
	if err := store.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS iterations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	iteration INTEGER NOT NULL,
	ts TEXT NOT NULL,
	decision_type TEXT NOT NULL,
	instruction TEXT,
	reason TEXT,
	success INTEGER NOT NULL,
	output TEXT,
	verification_passed INTEGER NOT NULL,
	verification_score REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_iterations_session ON iterations(session_id, id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// Record appends one iteration for sessionID
func (s *Store) Record(sessionID string, row Row) error {
	if sessionID == "" {
		return fmt.Errorf("session id required")
	}
	ts := row.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO iterations (session_id, iteration, ts, decision_type, instruction, reason, success, output, verification_passed, verification_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		row.Iteration,
		ts.UTC().Format(time.RFC3339Nano),
		row.DecisionType,
		row.Instruction,
		row.Reason,
		boolToInt(row.Success),
		row.Output,
		boolToInt(row.VerificationPassed),
		row.Score,
	)
	if err != nil {
		return fmt.Errorf("insert history row: %w", err)
	}
	return nil
}

// Sessions lists every session with rows, most recently active first
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(`
SELECT session_id, MIN(ts), MAX(ts), COUNT(*), SUM(success)
FROM iterations
GROUP BY session_id
ORDER BY MAX(ts) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var (
			sess        Session
			first, last string
			successes   sql.NullInt64
		)
		if err := rows.Scan(&sess.ID, &first, &last, &sess.Iterations, &successes); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.FirstAt = parseTime(first)
		sess.LastAt = parseTime(last)
		sess.Successes = int(successes.Int64)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// List returns the last limit rows of a session in recording order.
// A limit of zero or less returns all rows.
func (s *Store) List(sessionID string, limit int) ([]Row, error) {
	query := `
SELECT iteration, ts, decision_type, instruction, reason, success, output, verification_passed, verification_score
FROM iterations
WHERE session_id = ?
ORDER BY id DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	result := []Row{}
	for rows.Next() {
		var (
			row                 Row
			ts                  string
			instruction, reason sql.NullString
			output              sql.NullString
			success, passed     int
		)
		if err := rows.Scan(&row.Iteration, &ts, &row.DecisionType, &instruction, &reason, &success, &output, &passed, &row.Score); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		row.Timestamp = parseTime(ts)
		row.Instruction = instruction.String
		row.Reason = reason.String
		row.Output = output.String
		row.Success = success != 0
		row.VerificationPassed = passed != 0
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
