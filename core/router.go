package core

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// NewRouter constructs the Gin engine with routes wired.
//
// Route policy: registration, login, and every GET on movies/reviews are
// public; all other endpoints require a resolved identity. Ownership of
// reviews is checked inside the mutating handlers, after the not-found
// check, so a missing review is always 404 and a foreign review is
// always 403.
func NewRouter(cfg Config, tokens *TokenService, authService AuthService, users UserRepository, movies MovieRepository, reviews ReviewRepository, cache *MovieCache) *gin.Engine {
	r := gin.Default()

	// Global middleware: origin/CORS -> identity resolution
	r.Use(CORSMiddleware(cfg))
	r.Use(BearerAuthMiddleware(tokens, users))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/users/register", func(c *gin.Context) {
			var req struct {
				Username string `json:"username"`
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			req.Username = strings.TrimSpace(req.Username)
			req.Email = strings.TrimSpace(req.Email)
			if msg := validateRegistration(req.Username, req.Email, req.Password); msg != "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", msg)
				return
			}

			user, err := authService.Register(req.Username, req.Email, req.Password)
			if err != nil {
				switch {
				case errors.Is(err, ErrUsernameTaken):
					respondError(c, http.StatusConflict, "CONFLICT", "username already exists")
				case errors.Is(err, ErrEmailTaken):
					respondError(c, http.StatusConflict, "CONFLICT", "email already exists")
				default:
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to register user")
				}
				return
			}
			c.JSON(http.StatusCreated, gin.H{"user": user})
		})

		api.POST("/users/login", func(c *gin.Context) {
			var req struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}

			user, err := authService.Authenticate(req.Username, req.Password)
			if err != nil {
				respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
				return
			}

			token, err := tokens.Issue(user.Username)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to issue token")
				return
			}

			c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
		})

		api.GET("/users/me", func(c *gin.Context) {
			user, ok := requireUser(c)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": user})
		})

		api.GET("/movies", func(c *gin.Context) {
			page, perPage, err := parsePagination(c.Query("page"), c.Query("per_page"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
			ctx := c.Request.Context()

			items, total, ok := cache.GetList(ctx, page, perPage)
			if !ok {
				items, total, err = movies.List(ctx, page, perPage)
				if err != nil {
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch movies")
					return
				}
				cache.SetList(ctx, page, perPage, items, total)
			}

			c.JSON(http.StatusOK, gin.H{
				"items":       items,
				"page":        page,
				"per_page":    perPage,
				"total_items": total,
				"total_pages": calcTotalPages(total, perPage),
			})
		})

		api.GET("/movies/:id", func(c *gin.Context) {
			id, ok := parseID(c)
			if !ok {
				return
			}
			ctx := c.Request.Context()

			m, ok := cache.GetMovie(ctx, id)
			if !ok {
				var err error
				m, err = movies.Get(ctx, id)
				if err != nil {
					if errors.Is(err, pgx.ErrNoRows) {
						respondError(c, http.StatusNotFound, "NOT_FOUND", "movie not found")
						return
					}
					respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch movie")
					return
				}
				cache.SetMovie(ctx, m)
			}
			c.JSON(http.StatusOK, m)
		})

		api.POST("/movies", func(c *gin.Context) {
			if _, ok := requireUser(c); !ok {
				return
			}
			var req MovieInput
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if msg := validateMovieInput(req); msg != "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", msg)
				return
			}
			if strings.TrimSpace(req.ImageURL) == "" {
				req.ImageURL = placeholderImageURL
			}

			ctx := c.Request.Context()
			m, err := movies.Create(ctx, req)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create movie")
				return
			}
			cache.Invalidate(ctx, m.ID)
			c.JSON(http.StatusCreated, m)
		})

		api.PUT("/movies/:id", func(c *gin.Context) {
			if _, ok := requireUser(c); !ok {
				return
			}
			id, ok := parseID(c)
			if !ok {
				return
			}
			var req MovieInput
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if msg := validateMovieInput(req); msg != "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", msg)
				return
			}

			ctx := c.Request.Context()
			m, err := movies.Update(ctx, id, req)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "movie not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to update movie")
				return
			}
			cache.Invalidate(ctx, id)
			c.JSON(http.StatusOK, m)
		})

		api.DELETE("/movies/:id", func(c *gin.Context) {
			if _, ok := requireUser(c); !ok {
				return
			}
			id, ok := parseID(c)
			if !ok {
				return
			}
			ctx := c.Request.Context()
			deleted, err := movies.Delete(ctx, id)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to delete movie")
				return
			}
			if !deleted {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "movie not found")
				return
			}
			cache.Invalidate(ctx, id)
			c.JSON(http.StatusOK, gin.H{"message": "movie deleted"})
		})

		api.GET("/reviews", func(c *gin.Context) {
			page, perPage, err := parsePagination(c.Query("page"), c.Query("per_page"))
			if err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
				return
			}
			ctx := c.Request.Context()
			items, total, err := reviews.List(ctx, page, perPage)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch reviews")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"items":       items,
				"page":        page,
				"per_page":    perPage,
				"total_items": total,
				"total_pages": calcTotalPages(total, perPage),
			})
		})

		api.GET("/reviews/:id", func(c *gin.Context) {
			id, ok := parseID(c)
			if !ok {
				return
			}
			ctx := c.Request.Context()
			rv, err := reviews.Get(ctx, id)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "review not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch review")
				return
			}
			c.JSON(http.StatusOK, rv)
		})

		api.GET("/movies/:id/reviews", func(c *gin.Context) {
			id, ok := parseID(c)
			if !ok {
				return
			}
			ctx := c.Request.Context()
			exists, err := movies.Exists(ctx, id)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch movie")
				return
			}
			if !exists {
				respondError(c, http.StatusNotFound, "NOT_FOUND", "movie not found")
				return
			}
			items, err := reviews.ListByMovie(ctx, id)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch reviews")
				return
			}
			c.JSON(http.StatusOK, gin.H{"items": items})
		})

		api.POST("/reviews", func(c *gin.Context) {
			user, ok := requireUser(c)
			if !ok {
				return
			}
			var req struct {
				MovieID int64  `json:"movie_id"`
				Content string `json:"content"`
				Rating  int    `json:"rating"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if msg := validateReviewInput(req.Content, req.Rating); msg != "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", msg)
				return
			}
			if req.MovieID <= 0 {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "movie_id is required")
				return
			}

			ctx := c.Request.Context()
			exists, err := movies.Exists(ctx, req.MovieID)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch movie")
				return
			}
			if !exists {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "movie does not exist")
				return
			}

			rv, err := reviews.Create(ctx, req.MovieID, user.ID, req.Content, req.Rating)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to create review")
				return
			}
			c.JSON(http.StatusCreated, rv)
		})

		api.PUT("/reviews/:id", func(c *gin.Context) {
			user, ok := requireUser(c)
			if !ok {
				return
			}
			id, ok := parseID(c)
			if !ok {
				return
			}
			var req struct {
				Content string `json:"content"`
				Rating  int    `json:"rating"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid json")
				return
			}
			if msg := validateReviewInput(req.Content, req.Rating); msg != "" {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", msg)
				return
			}

			ctx := c.Request.Context()
			existing, err := reviews.Get(ctx, id)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "review not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch review")
				return
			}
			// Ownership: existing review, wrong author -> 403, never 404.
			if existing.UserID != user.ID {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "you cannot update this review")
				return
			}

			rv, err := reviews.Update(ctx, id, req.Content, req.Rating)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to update review")
				return
			}
			c.JSON(http.StatusOK, rv)
		})

		api.DELETE("/reviews/:id", func(c *gin.Context) {
			user, ok := requireUser(c)
			if !ok {
				return
			}
			id, ok := parseID(c)
			if !ok {
				return
			}
			ctx := c.Request.Context()
			existing, err := reviews.Get(ctx, id)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					respondError(c, http.StatusNotFound, "NOT_FOUND", "review not found")
					return
				}
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to fetch review")
				return
			}
			if existing.UserID != user.ID {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "you cannot delete this review")
				return
			}

			if err := reviews.Delete(ctx, id); err != nil {
				respondError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "failed to delete review")
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "review deleted"})
		})
	}

	return r
}

const placeholderImageURL = "https://via.placeholder.com/300x400?text=No+Image"

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
		return 0, false
	}
	return id, true
}

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateRegistration(username, email, password string) string {
	if username == "" {
		return "username is required"
	}
	if email == "" {
		return "email is required"
	}
	if !emailRx.MatchString(email) {
		return "email must be valid"
	}
	if password == "" {
		return "password is required"
	}
	if len(password) < 6 {
		return "password must be at least 6 characters"
	}
	return ""
}

func validateMovieInput(in MovieInput) string {
	if strings.TrimSpace(in.Title) == "" {
		return "title is required"
	}
	if strings.TrimSpace(in.Director) == "" {
		return "director is required"
	}
	if strings.TrimSpace(in.Genre) == "" {
		return "genre is required"
	}
	if in.ReleaseYear < 1888 || in.ReleaseYear > time.Now().Year()+1 {
		return "release_year must be a valid year"
	}
	return ""
}

func validateReviewInput(content string, rating int) string {
	if strings.TrimSpace(content) == "" {
		return "content is required"
	}
	if rating < 1 || rating > 5 {
		return "rating must be between 1 and 5"
	}
	return ""
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

func parsePagination(pageStr, perPageStr string) (int, int, error) {
	page := 1
	perPage := defaultPerPage
	if strings.TrimSpace(pageStr) != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, errors.New("page must be a positive integer")
		}
		page = p
	}
	if strings.TrimSpace(perPageStr) != "" {
		p, err := strconv.Atoi(perPageStr)
		if err != nil || p <= 0 {
			return 0, 0, errors.New("per_page must be a positive integer")
		}
		if p > maxPerPage {
			p = maxPerPage
		}
		perPage = p
	}
	return page, perPage, nil
}

func calcTotalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
