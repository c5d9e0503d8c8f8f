package types

import (
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type DocKind string

const (
	DocStudentPDF DocKind = "student_pdf"
	DocStudentWeb DocKind = "student_web"
	DocCoursePDF  DocKind = "course_pdf"
	DocCourseWeb  DocKind = "course_web"
)

const (
	CorpusStudent = "student"
	CorpusCourse  = "course"
)

// Corpus returns the search corpus a document kind belongs to.
func (k DocKind) Corpus() string {
	switch k {
	case DocStudentPDF, DocStudentWeb:
		return CorpusStudent
	default:
		return CorpusCourse
	}
}

type Chunk struct {
	ID        uuid.UUID
	DocID     uuid.UUID
	Position  int
	Content   string
	SourceURL string
	Embedding []float32
	Distance  float64 // cosine similarity, filled on search
}

// RankedChunk is a chunk after second-pass relevance scoring.
type RankedChunk struct {
	Chunk
	Relevance float64
}

type Document struct {
	ID         uuid.UUID
	Title      string
	Kind       DocKind
	Chunks     []Chunk
	SourcePath string // file path or URL the text came from
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int
}

// CourseRecord is one structured course offering extracted from brochure
// text. Its ID is a deterministic slug so re-extraction upserts in place.
type CourseRecord struct {
	ID          string    `json:"id"`
	Institute   string    `json:"institute"`
	Course      string    `json:"course"`
	Degree      string    `json:"degree"`
	Duration    string    `json:"duration"`
	Fees        string    `json:"fees"`
	Eligibility string    `json:"eligibility"`
	SourceURL   string    `json:"source_url"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type IngestResult struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ChunkCount int    `json:"chunk_count"`
}

type Config struct {
	ChunkSize      int
	ChunkOverlap   int
	RetrieveK      int
	RerankTopN     int
	ContextBudget  int // prompt budget in tokens
	CallTimeout    time.Duration
	MonitoringTime time.Duration
	SourceDir      string
	ArchiveDir     string
	BadDir         string
}

// LoadConfig reads tunables from the environment, falling back to the
// defaults the pipeline was tuned with.
func LoadConfig() Config {
	return Config{
		ChunkSize:      envInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   envInt("CHUNK_OVERLAP", 200),
		RetrieveK:      envInt("RETRIEVE_K", 12),
		RerankTopN:     envInt("RERANK_TOP_N", 6),
		ContextBudget:  envInt("CONTEXT_BUDGET", 6000),
		CallTimeout:    time.Duration(envInt("CALL_TIMEOUT_SEC", 60)) * time.Second,
		MonitoringTime: time.Duration(envInt("LOADER_MONITORING_SEC", 5)) * time.Second,
		SourceDir:      envStr("LOADER_SOURCE_DIR", "source"),
		ArchiveDir:     envStr("LOADER_ARCHIVE_DIR", "archive"),
		BadDir:         envStr("LOADER_BAD_DIR", "bad"),
	}
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
