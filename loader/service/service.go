package service

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"collegeseeker/loader/internal"
	"collegeseeker/pipeline"
	"collegeseeker/types"
)

// Service ties the directory watcher to the ingestion pipeline: brochures
// dropped into the source folder end up as embedded chunks in the store.
type Service struct {
	logger   *slog.Logger
	ingestor *pipeline.Ingestor
	watcher  *internal.Watcher
}

func New(ingestor *pipeline.Ingestor, cfg types.Config) *Service {
	return &Service{
		logger:   slog.Default(),
		ingestor: ingestor,
		watcher:  internal.NewWatcher(cfg),
	}
}

func (s *Service) Stop() {
	s.logger.Info("Loader Service stopped")
}

func (s *Service) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fileChan := make(chan string, 10)
	jobChan := make(chan internal.Job)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(fileChan)
		s.watcher.WatchFiles(ctx, fileChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobChan)
		s.watcher.ProcessFiles(ctx, fileChan, jobChan)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.ingestJobs(ctx, jobChan)
	}()

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)

	<-sigch
	log.Println("Received shutdown signal, shutting down gracefully...")

	cancel()
	signal.Stop(sigch)
	close(sigch)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All goroutines stopped successfully")
	case <-shutdownCtx.Done():
		log.Println("Timeout waiting for goroutines to stop, forcing shutdown...")
	}

	s.Stop()
	log.Println("Service stopped successfully")
}

func (s *Service) ingestJobs(ctx context.Context, jobChan <-chan internal.Job) {
	for {
		job, ok := <-jobChan
		if !ok {
			return
		}

		res, err := s.ingestor.Ingest(ctx, job.Title, types.DocCoursePDF, job.Path, job.Text)
		switch {
		case err != nil && ctx.Err() != nil:
			// Shutdown cut the ingest short; keep the file in source so the
			// next run picks it up.
			s.logger.Info("ingest interrupted by shutdown, file stays in source", "file", job.Path)
		case err != nil:
			s.logger.Error("ingest failed", "file", job.Path, "error", err)
			s.watcher.MoveToArchive(job.Path, 1)
		default:
			s.logger.Info("ingest finished", "file", job.Path, "chunks", res.ChunkCount)
			s.watcher.MoveToArchive(job.Path, 0)
		}
		s.watcher.Forget(job.Path)
	}
}
