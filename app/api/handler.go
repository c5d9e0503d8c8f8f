package api

import (
	"context"
	"fmt"
	"time"

	"collegeseeker/app/agent"
	"collegeseeker/model"
	"collegeseeker/pipeline"
	"collegeseeker/store"
	"collegeseeker/types"

	"github.com/gofiber/fiber/v2"
)

// Default questions mirror what the UI asks when the caller gives none.
const (
	defaultAnalysisQuestion  = "Answer with which Degree, Course Specialization to consider keeping in mind my Academic, Co-curricular and Extracurricular Profile."
	defaultRecommendQuestion = "What type of College Should I apply to with this information?"
)

type RequestHandler struct {
	contextStore store.DBStorer
	queries      *pipeline.QueryPipeline
	courseAgent  *agent.Agent
	studentAgent *agent.Agent
	cfg          types.Config
}

func NewRequestHandler(contextStore store.DBStorer, queries *pipeline.QueryPipeline, llm model.GeneratorInterface, search agent.WebSearcher, cfg types.Config) *RequestHandler {
	courseContext := func(ctx context.Context, query string) (*pipeline.Retrieval, error) {
		return queries.Retrieve(ctx, query, types.CorpusCourse, cfg.RerankTopN)
	}
	studentContext := func(ctx context.Context, query string) (*pipeline.Retrieval, error) {
		return queries.Retrieve(ctx, query, types.CorpusStudent, cfg.RerankTopN)
	}

	return &RequestHandler{
		contextStore: contextStore,
		queries:      queries,
		courseAgent:  agent.New(llm, search, courseContext, cfg.ContextBudget),
		studentAgent: agent.New(llm, nil, studentContext, cfg.ContextBudget),
		cfg:          cfg,
	}
}

// HandleQuery answers a free-text course question over the course corpus.
func (h *RequestHandler) HandleQuery(c *fiber.Ctx) error {
	var params types.QueryParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return types.NewValidationError(errors)
	}

	resp, err := h.recommendCourses(c.Context(), params.Query, params.Limit)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// HandleAnalyze answers a question about one student's stored profile.
func (h *RequestHandler) HandleAnalyze(c *fiber.Ctx) error {
	var params types.AnalyzeParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return types.NewValidationError(errors)
	}

	analysis, sources, err := h.analyzeStudent(c.Context(), params.StudentName, params.Question)
	if err != nil {
		return err
	}

	return c.JSON(&types.AnalyzeResponse{
		StudentName: params.StudentName,
		Question:    questionOrDefault(params.Question, defaultAnalysisQuestion),
		Analysis:    analysis,
		Sources:     sources,
		Timestamp:   time.Now(),
	})
}

// HandleRecommend runs the integrated flow: the student analysis becomes the
// course recommendation query.
func (h *RequestHandler) HandleRecommend(c *fiber.Ctx) error {
	var params types.RecommendParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errors := types.Validate(&params); len(errors) > 0 {
		return types.NewValidationError(errors)
	}

	question := questionOrDefault(params.Question, defaultRecommendQuestion)
	analysis, _, err := h.analyzeStudent(c.Context(), params.StudentName, question)
	if err != nil {
		return err
	}

	recommendations, err := h.recommendCourses(c.Context(), analysis, 0)
	if err != nil {
		return err
	}

	return c.JSON(&types.RecommendResponse{
		StudentName:     params.StudentName,
		Question:        question,
		StudentAnalysis: analysis,
		Recommendations: *recommendations,
	})
}

// HandleCourses lists the structured course catalog built up by brochure
// extraction.
func (h *RequestHandler) HandleCourses(c *fiber.Ctx) error {
	records, err := h.contextStore.ListCourses(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"count": len(records), "courses": records})
}

func (h *RequestHandler) analyzeStudent(ctx context.Context, studentName, question string) (string, []types.Source, error) {
	docs, err := h.contextStore.FindDocumentsByTitle(ctx, studentName, types.CorpusStudent)
	if err != nil {
		return "", nil, err
	}
	if len(docs) == 0 {
		return "", nil, ErrNotFound(studentName, "student profile")
	}

	question = questionOrDefault(question, defaultAnalysisQuestion)
	prompt := fmt.Sprintf("%s\nStudent: %s", question, studentName)

	analysis, retrieval, err := h.studentAgent.Answer(ctx, prompt)
	if err != nil {
		return "", nil, err
	}
	return analysis, retrieval.Sources(), nil
}

func (h *RequestHandler) recommendCourses(ctx context.Context, query string, limit int) (*types.SearchResponse, error) {
	answer, retrieval, err := h.courseAgent.Answer(ctx, query)
	if err != nil {
		return nil, err
	}

	sources := retrieval.Sources()
	if limit > 0 && len(sources) > limit {
		sources = sources[:limit]
	}

	return &types.SearchResponse{
		Answer:    answer,
		Sources:   sources,
		Reranked:  retrieval.Reranked,
		Timestamp: time.Now(),
	}, nil
}

func questionOrDefault(question, def string) string {
	if question == "" {
		return def
	}
	return question
}
