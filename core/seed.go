package core

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// movieSeedDoc is the YAML shape of a catalog seed file:
//
//	movies:
//	  - title: "..."
//	    director: "..."
//	    genre: "..."
//	    release_year: 1999
//	    synopsis: "..."
//	    image_url: "..."
type movieSeedDoc struct {
	Movies []struct {
		Title       string `yaml:"title"`
		Director    string `yaml:"director"`
		Genre       string `yaml:"genre"`
		ReleaseYear int    `yaml:"release_year"`
		Synopsis    string `yaml:"synopsis"`
		ImageURL    string `yaml:"image_url"`
	} `yaml:"movies"`
}

// SeedMovies imports an initial catalog from cfg.MovieSeedFile.
// It is idempotent: nothing happens when no seed file is configured or
// when the movies table already has rows.
func SeedMovies(ctx context.Context, repo MovieRepository, cfg Config) error {
	if cfg.MovieSeedFile == "" {
		return nil
	}

	_, total, err := repo.List(ctx, 1, 1)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	b, err := os.ReadFile(cfg.MovieSeedFile)
	if err != nil {
		return fmt.Errorf("read seed file %s: %w", cfg.MovieSeedFile, err)
	}

	var doc movieSeedDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("parse seed file %s: %w", cfg.MovieSeedFile, err)
	}

	created := 0
	for i, m := range doc.Movies {
		in := MovieInput{
			Title:       m.Title,
			Director:    m.Director,
			Genre:       m.Genre,
			ReleaseYear: m.ReleaseYear,
			Synopsis:    m.Synopsis,
			ImageURL:    m.ImageURL,
		}
		if msg := validateMovieInput(in); msg != "" {
			return fmt.Errorf("seed entry %d: %s", i+1, msg)
		}
		if strings.TrimSpace(in.ImageURL) == "" {
			in.ImageURL = placeholderImageURL
		}
		if _, err := repo.Create(ctx, in); err != nil {
			return fmt.Errorf("seed entry %d: %w", i+1, err)
		}
		created++
	}

	log.Printf("seeded %d movies from %s", created, cfg.MovieSeedFile)
	return nil
}
