package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"collegeseeker/loader/service"
	"collegeseeker/model"
	"collegeseeker/pipeline"
	"collegeseeker/store"
	"collegeseeker/types"

	"github.com/joho/godotenv"
)

func init() {
	mustLoadEnvVariables()
}

func main() {
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

	service.New(ingestor, cfg).Run()

	log.Println("Closing database connection pool...")
	if err := pool.Close(); err != nil {
		log.Printf("error closing pool: %v\n", err)
	}
}

func mustLoadEnvVariables() {
	err := godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file")
	}
}
