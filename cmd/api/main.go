package main

import (
	"context"
	"fmt"
	"log"

	"github.com/AntMasFus/resenasPeliculas/core"
)

func main() {
	cfg := core.Load()
	ctx := context.Background()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	if err := core.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	db, err := core.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	// The movie cache is optional; without REDIS_URL every read hits postgres.
	var cache *core.MovieCache
	if cfg.RedisURL != "" {
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisClient.Close()
		cache = core.NewMovieCache(redisClient)
	}

	userRepo := core.NewPgUserRepository(db)
	movieRepo := core.NewPgMovieRepository(db)
	reviewRepo := core.NewPgReviewRepository(db)

	authService := core.NewRepositoryAuthService(userRepo, cfg.BcryptCost)
	tokens := core.NewTokenService(cfg.TokenSecret, cfg.TokenTTL)

	if err := core.SeedMovies(ctx, movieRepo, cfg); err != nil {
		log.Fatalf("movie seed failed: %v", err)
	}

	router := core.NewRouter(cfg, tokens, authService, userRepo, movieRepo, reviewRepo, cache)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
