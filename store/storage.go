package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"collegeseeker/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type DBStorer interface {
	SaveDocument(context.Context, types.Document) error
	GetDocumentByID(context.Context, uuid.UUID) (*types.Document, error)
	GetDocumentBySource(context.Context, types.DocKind, string) (*types.Document, error)
	FindDocumentsByTitle(context.Context, string, string) ([]types.Document, error)
	SaveChunks(context.Context, []types.Chunk) error
	DeleteChunksByDocID(context.Context, uuid.UUID) error
	SaveCourses(context.Context, []types.CourseRecord) error
	ListCourses(context.Context) ([]types.CourseRecord, error)
	Search(ctx context.Context, queryVec []float32, limit int, corpus string) ([]types.Chunk, error)
	EnsureIndex(ctx context.Context, dimensions int) error
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool: pool,
	}, nil
}

func (p *PostgresStore) GetDocumentByID(ctx context.Context, docID uuid.UUID) (*types.Document, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT id, title, kind, source_path, created_at, updated_at, version FROM documents WHERE id = $1", docID)
	if err != nil {
		return nil, types.NewExternalServiceError("vector-store", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, sql.ErrNoRows
	}
	return scanDocument(rows.Scan)
}

// GetDocumentBySource finds the document previously ingested from the same
// file or URL, so re-ingestion supersedes it instead of duplicating. The key
// is scoped by kind: a student resume and a brochure sharing a filename are
// distinct documents.
func (p *PostgresStore) GetDocumentBySource(ctx context.Context, kind types.DocKind, sourcePath string) (*types.Document, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT id, title, kind, source_path, created_at, updated_at, version FROM documents WHERE kind = $1 AND source_path = $2", kind, sourcePath)
	if err != nil {
		return nil, types.NewExternalServiceError("vector-store", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, sql.ErrNoRows
	}
	return scanDocument(rows.Scan)
}

// FindDocumentsByTitle matches documents of a corpus by title, case
// insensitive. Used to locate a student's profile documents by name.
func (p *PostgresStore) FindDocumentsByTitle(ctx context.Context, title, corpus string) ([]types.Document, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, title, kind, source_path, created_at, updated_at, version
		FROM documents
		WHERE title ILIKE '%' || $1 || '%' AND corpus = $2
		ORDER BY updated_at DESC`, title, corpus)
	if err != nil {
		return nil, types.NewExternalServiceError("vector-store", err)
	}
	defer rows.Close()

	var docs []types.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func scanDocument(scan func(...any) error) (*types.Document, error) {
	doc := &types.Document{}
	if err := scan(
		&doc.ID,
		&doc.Title,
		&doc.Kind,
		&doc.SourcePath,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.Version); err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *PostgresStore) DeleteChunksByDocID(ctx context.Context, docID uuid.UUID) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM chunks WHERE doc_id = $1", docID)
	if err != nil {
		return types.NewExternalServiceError("vector-store", err)
	}
	return nil
}

func (p *PostgresStore) SaveDocument(ctx context.Context, doc types.Document) error {
	query := `INSERT INTO documents (id, title, kind, corpus, source_path, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			kind = EXCLUDED.kind,
			corpus = EXCLUDED.corpus,
			source_path = EXCLUDED.source_path,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
			`
	_, err := p.pool.Exec(
		ctx,
		query,
		doc.ID,
		doc.Title,
		doc.Kind,
		doc.Kind.Corpus(),
		doc.SourcePath,
		doc.CreatedAt,
		doc.UpdatedAt,
		doc.Version,
	)
	if err != nil {
		return types.NewExternalServiceError("vector-store", err)
	}
	return nil
}

func (p *PostgresStore) SaveChunks(ctx context.Context, chunks []types.Chunk) error {
	query := `
    INSERT INTO chunks (id, doc_id, position, content, source_url, embedding)
    VALUES ($1, $2, $3, $4, $5, $6)
    `
	for _, c := range chunks {
		_, err := p.pool.Exec(ctx, query,
			c.ID, c.DocID, c.Position, c.Content, c.SourceURL, pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return types.NewExternalServiceError("vector-store", err)
		}
	}
	return nil
}

// SaveCourses upserts extracted course records by their slug id, so
// re-extraction of the same brochure refreshes rows in place.
func (p *PostgresStore) SaveCourses(ctx context.Context, records []types.CourseRecord) error {
	query := `INSERT INTO courses (id, institute, course, degree, duration, fees, eligibility, source_url, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			institute = EXCLUDED.institute,
			course = EXCLUDED.course,
			degree = EXCLUDED.degree,
			duration = EXCLUDED.duration,
			fees = EXCLUDED.fees,
			eligibility = EXCLUDED.eligibility,
			source_url = EXCLUDED.source_url,
			updated_at = EXCLUDED.updated_at
			`
	for _, r := range records {
		_, err := p.pool.Exec(ctx, query,
			r.ID, r.Institute, r.Course, r.Degree, r.Duration, r.Fees, r.Eligibility, r.SourceURL, r.UpdatedAt,
		)
		if err != nil {
			return types.NewExternalServiceError("vector-store", err)
		}
	}
	return nil
}

func (p *PostgresStore) ListCourses(ctx context.Context) ([]types.CourseRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, institute, course, degree, duration, fees, eligibility, source_url, updated_at
		FROM courses
		ORDER BY institute, course`)
	if err != nil {
		return nil, types.NewExternalServiceError("vector-store", err)
	}
	defer rows.Close()

	var records []types.CourseRecord
	for rows.Next() {
		var r types.CourseRecord
		if err := rows.Scan(
			&r.ID,
			&r.Institute,
			&r.Course,
			&r.Degree,
			&r.Duration,
			&r.Fees,
			&r.Eligibility,
			&r.SourceURL,
			&r.UpdatedAt); err != nil {
			return nil, types.NewExternalServiceError("vector-store", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Search returns the limit nearest chunks by cosine similarity, restricted to
// one corpus. Tie order among equal distances is whatever Postgres returns.
func (p *PostgresStore) Search(ctx context.Context, queryVec []float32, limit int, corpus string) ([]types.Chunk, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	vector := pgvector.NewVector(queryVec)

	query := `
		SELECT pc.id, pc.doc_id, pc.position, pc.content, pc.source_url,
		       1-(pc.embedding <=> $1) as distance
		FROM chunks pc
		JOIN documents doc ON pc.doc_id = doc.id
		WHERE pc.embedding IS NOT NULL AND doc.corpus = $3
		ORDER BY pc.embedding <=> $1
		LIMIT $2
	`
	rows, err := p.pool.Query(ctx, query, vector, limit, corpus)
	if err != nil {
		return nil, types.NewExternalServiceError("vector-store", err)
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var chunk types.Chunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocID,
			&chunk.Position,
			&chunk.Content,
			&chunk.SourceURL,
			&chunk.Distance)
		if err != nil {
			return nil, types.NewExternalServiceError("vector-store", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// EnsureIndex creates the schema and the vector index for the given embedding
// dimension. Safe to call on every start.
func (p *PostgresStore) EnsureIndex(ctx context.Context, dimensions int) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('student_pdf','student_web','course_pdf','course_web')),
		corpus TEXT NOT NULL CHECK (corpus IN ('student','course')),
		source_path TEXT,
		created_at TIMESTAMP WITH TIME ZONE,
		updated_at TIMESTAMP WITH TIME ZONE,
		version INTEGER DEFAULT 1
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_kind_source ON documents(kind, source_path);
	CREATE INDEX IF NOT EXISTS idx_documents_corpus ON documents(corpus);

    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS chunks (
        id UUID PRIMARY KEY,
        doc_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
        position INT NOT NULL,
        content TEXT NOT NULL,
        source_url TEXT,
        embedding vector(%d)
    );

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);

	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		institute TEXT NOT NULL,
		course TEXT NOT NULL,
		degree TEXT,
		duration TEXT,
		fees TEXT,
		eligibility TEXT,
		source_url TEXT,
		updated_at TIMESTAMP WITH TIME ZONE
	);
    `, dimensions)
	_, err := p.pool.Exec(ctx, query)
	if err != nil {
		return types.NewExternalServiceError("vector-store", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
