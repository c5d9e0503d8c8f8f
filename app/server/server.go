package server

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"collegeseeker/app/agent"
	"collegeseeker/app/api"
	"collegeseeker/loader"
	"collegeseeker/model"
	"collegeseeker/pipeline"
	"collegeseeker/store"
	"collegeseeker/types"

	"github.com/gofiber/fiber/v2"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
	BodyLimit:    50 * 1024 * 1024, // brochure PDFs get large
}

type Server struct {
	listenAddr string
	logger     *slog.Logger
}

func NewServer(addr string) *Server {
	return &Server{
		listenAddr: addr,
		logger:     slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()
	cfg := types.LoadConfig()

	port, _ := strconv.Atoi(os.Getenv("PG_PORT"))
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		os.Getenv("PG_HOST"), port, os.Getenv("PG_USER"), os.Getenv("PG_PASS"), os.Getenv("PG_DB_NAME"))
	pool, err := store.NewPostgresStore(ctx, connStr)
	if err != nil {
		log.Fatal("error to connect to Postgres database", err)
	}

	embedder := model.NewOllamaEmbedder(cfg.CallTimeout)
	if err := pool.EnsureIndex(ctx, embedder.Dimension()); err != nil {
		log.Fatal("error to create tables", err)
	}

	ingestor, err := pipeline.NewIngestor(pool, embedder, cfg)
	if err != nil {
		log.Fatal("invalid chunking config: ", err)
	}

	var (
		reranker = model.NewHTTPReranker(cfg.CallTimeout)
		queries  = pipeline.NewQueryPipeline(pool, embedder, reranker, cfg)
		llm      = model.NewOllamaLLM(cfg.CallTimeout)
		search   = agent.NewTavilySearch(cfg.CallTimeout)
		web      = loader.NewWebLoader(cfg.CallTimeout, 1)
		courses  = pipeline.NewCourseExtractor(llm, pool)

		app            = fiber.New(config)
		checkHandler   = api.NewCheckHandler()
		requestHandler = api.NewRequestHandler(pool, queries, llm, search, cfg)
		ingestHandler  = api.NewIngestHandler(ingestor, web, courses)

		check = app.Group("/check")
		apiv1 = app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)

	apiv1.Post("/upload/profile", ingestHandler.HandleProfileUpload)
	apiv1.Post("/upload/profile-link", ingestHandler.HandleProfileLink)
	apiv1.Post("/upload/course", ingestHandler.HandleCourseUpload)
	apiv1.Post("/upload/course-link", ingestHandler.HandleCourseLink)

	apiv1.Get("/courses", requestHandler.HandleCourses)
	apiv1.Post("/query", requestHandler.HandleQuery)
	apiv1.Post("/student/analyze", requestHandler.HandleAnalyze)
	apiv1.Post("/recommend", requestHandler.HandleRecommend)

	err = app.Listen(s.listenAddr)
	if err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return
	}
}
