package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Store wraps the relational backend: company/task rows plus the pgvector
// document-chunk table used for semantic retrieval.
type Store struct {
	DB *sql.DB
}

// DefaultEmbeddingDimensions is the expected length of vectors stored in
// the pgvector column (embed-english-v3.0).
const DefaultEmbeddingDimensions = 1024

// ErrNotFound is returned when an update targets a row that does not exist.
var ErrNotFound = errors.New("not found")

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Company operations

type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Store) CreateCompany(ctx context.Context, name, sector string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO companies (name, sector) VALUES ($1,$2) RETURNING id`, name, sector).Scan(&id)
	return id, err
}

func (s *Store) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, sector, created_at FROM companies ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Sector, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Task operations. A task is one disclosure item: a datapoint or narrative
// an owner has to fill in, optionally backed by uploaded policy files.

type Task struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	OwnerID   string    `json:"owner_id"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Store) CreateTask(ctx context.Context, companyID, title, category, ownerID string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO tasks (company_id, title, category, owner_id) VALUES ($1,$2,$3,$4) RETURNING id`,
		companyID, title, category, ownerID).Scan(&id)
	return id, err
}

func (s *Store) ListTasks(ctx context.Context, companyID string) ([]Task, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, company_id, title, category, owner_id, value, created_at, updated_at
FROM tasks WHERE company_id=$1 ORDER BY created_at`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.Title, &t.Category, &t.OwnerID, &t.Value, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTaskValue stores the editable disclosure value for a task.
func (s *Store) UpdateTaskValue(ctx context.Context, taskID, value string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE tasks SET value=$2, updated_at=NOW() WHERE id=$1`, taskID, value)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignTask sets the owner responsible for a task.
func (s *Store) AssignTask(ctx context.Context, taskID, ownerID string) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE tasks SET owner_id=$2, updated_at=NOW() WHERE id=$1`, taskID, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Task file operations. The blob itself lives in the hosted storage
// backend; rows carry its path and a fetchable URL.

type TaskFile struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	FilePath  string    `json:"file_path"`
	FileURL   string    `json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Store) AddTaskFile(ctx context.Context, taskID, filePath, fileURL string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO task_files (task_id, file_path, file_url) VALUES ($1,$2,$3) RETURNING id`,
		taskID, filePath, fileURL).Scan(&id)
	return id, err
}

func (s *Store) ListTaskFiles(ctx context.Context, taskID string) ([]TaskFile, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, task_id, file_path, file_url, created_at
FROM task_files WHERE task_id=$1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TaskFile
	for rows.Next() {
		var f TaskFile
		if err := rows.Scan(&f.ID, &f.TaskID, &f.FilePath, &f.FileURL, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Milestone operations

type Milestone struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Title     string    `json:"title"`
	DueDate   time.Time `json:"due_date"`
	Target    string    `json:"target"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Store) CreateMilestone(ctx context.Context, taskID, title string, dueDate time.Time, target string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO milestones (task_id, title, due_date, target) VALUES ($1,$2,$3,$4) RETURNING id`,
		taskID, title, dueDate, target).Scan(&id)
	return id, err
}

func (s *Store) ListMilestones(ctx context.Context, taskID string) ([]Milestone, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, task_id, title, due_date, target, completed, created_at
FROM milestones WHERE task_id=$1 ORDER BY due_date`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Milestone
	for rows.Next() {
		var m Milestone
		if err := rows.Scan(&m.ID, &m.TaskID, &m.Title, &m.DueDate, &m.Target, &m.Completed, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Document chunk operations (pgvector)

// DocumentChunkRecord is one embedded chunk of an uploaded policy file.
type DocumentChunkRecord struct {
	ID         string
	SessionID  string
	UserID     string
	FilePath   string
	ChunkIndex int
	ChunkTotal int
	Content    string
	Vector     []float32
	Metadata   map[string]interface{}
}

// SessionChunk is a stored chunk fetched back for prompt assembly.
type SessionChunk struct {
	Content    string
	FilePath   string
	ChunkIndex int
}

// SearchResult is one ranked hit from the similarity-search procedure.
type SearchResult struct {
	Content    string
	Metadata   map[string]interface{}
	Similarity float64
}

// InsertDocumentChunks persists chunk records one by one. The first insert
// failure aborts the remaining inserts; already-inserted rows stay (no
// rollback). A duplicate under the (session, user, file, index) unique
// index is skipped silently, which keeps re-ingestion idempotent even when
// the pre-existence check races.
func (s *Store) InsertDocumentChunks(ctx context.Context, records []DocumentChunkRecord) error {
	stmt, err := s.DB.PrepareContext(ctx, `
INSERT INTO document_chunks (id, session_id, user_id, file_path, chunk_index, chunk_total, content, embedding, metadata, uploaded_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8::vector,$9,NOW())
ON CONFLICT (session_id, user_id, file_path, chunk_index) DO NOTHING;
`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, rec := range records {
		if len(rec.Vector) == 0 {
			return fmt.Errorf("embedding vector required for chunk %d of %s", rec.ChunkIndex, rec.FilePath)
		}
		vectorLiteral, err := encodeVectorLiteral(rec.Vector)
		if err != nil {
			return err
		}
		meta := rec.Metadata
		if meta == nil {
			meta = map[string]interface{}{}
		}
		metaBytes, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.SessionID, rec.UserID, rec.FilePath,
			rec.ChunkIndex, rec.ChunkTotal, rec.Content, vectorLiteral, metaBytes); err != nil {
			return fmt.Errorf("insert chunk %d of %s: %w", rec.ChunkIndex, rec.FilePath, err)
		}
	}
	return nil
}

// HasDocumentChunks reports whether any chunk exists for the given session,
// user and file path.
func (s *Store) HasDocumentChunks(ctx context.Context, sessionID, userID, filePath string) (bool, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT 1 FROM document_chunks
WHERE session_id=$1 AND user_id=$2 AND file_path=$3
LIMIT 1
`, sessionID, userID, filePath)
	var exists int
	switch err := row.Scan(&exists); err {
	case nil:
		return true, nil
	case sql.ErrNoRows:
		return false, nil
	default:
		return false, err
	}
}

// ListSessionChunks returns all stored chunks for a session/user pair,
// ordered by file then position.
func (s *Store) ListSessionChunks(ctx context.Context, sessionID, userID string) ([]SessionChunk, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT content, file_path, chunk_index
FROM document_chunks
WHERE session_id=$1 AND user_id=$2
ORDER BY file_path, chunk_index
`, sessionID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionChunk
	for rows.Next() {
		var c SessionChunk
		if err := rows.Scan(&c.Content, &c.FilePath, &c.ChunkIndex); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SearchDocuments delegates ranked similarity search to the database's
// match_documents procedure. An empty result is not an error.
func (s *Store) SearchDocuments(ctx context.Context, vector []float32, limit int) ([]SearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector must not be empty")
	}
	if limit <= 0 {
		limit = 10
	}
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT content, metadata, similarity FROM match_documents($1::vector, $2)
`, vecLiteral, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []SearchResult
	for rows.Next() {
		var (
			res       SearchResult
			metaBytes []byte
		)
		if err := rows.Scan(&res.Content, &metaBytes, &res.Similarity); err != nil {
			return nil, err
		}
		if len(metaBytes) > 0 {
			_ = json.Unmarshal(metaBytes, &res.Metadata)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// IsUniqueViolation reports whether err is the Postgres unique-constraint
// error, used by handlers to map onboarding conflicts to 409.
func IsUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}
