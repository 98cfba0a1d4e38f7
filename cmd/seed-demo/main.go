package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/proctorly/interview-backend/internal/config"
	"github.com/proctorly/interview-backend/internal/database"
	"github.com/proctorly/interview-backend/internal/logger"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/repository"
	"github.com/proctorly/interview-backend/internal/service"
)

// seed-demo creates a position with a question bank and a few candidates,
// printing their one-time access codes.
func main() {
	var (
		questions  int
		candidates int
		drawn      int
	)
	flag.IntVar(&questions, "questions", 20, "Questions in the bank")
	flag.IntVar(&candidates, "candidates", 5, "Candidates to register")
	flag.IntVar(&drawn, "draw", 10, "Questions drawn per attempt")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	positionRepo := repository.NewPositionRepository(pool)
	candidateRepo := repository.NewCandidateRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	// Hashing only needs the config; sessions are never touched here.
	authService := service.NewAuthService(cfg, nil, repository.NewAdminRepository(pool), candidateRepo)
	positionService := service.NewPositionService(positionRepo)
	questionService := service.NewQuestionService(questionRepo, positionRepo, nil, log)
	candidateService := service.NewCandidateService(candidateRepo, positionRepo, authService)

	fmt.Println("=== Seeding demo position ===")

	pos, err := positionService.Create(ctx, &model.PositionRequest{
		Name:            "Customer Support Associate",
		Salary:          "Negotiable",
		Experience:      "0-2 years",
		Vacancies:       3,
		Shift:           "Day",
		JobType:         "Full-time",
		QuestionCount:   drawn,
		DurationMinutes: 30,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create position")
	}
	fmt.Printf("Created position %s (%s)\n", pos.Name, pos.ID)

	added := 0
	for i := 1; i <= questions; i++ {
		_, err := questionService.AddQuestion(ctx, pos.ID, &model.AddQuestionRequest{
			QuestionText: fmt.Sprintf("What is %d + %d?", i, i),
			Options: []model.Option{
				{ID: "a", Text: fmt.Sprint(i + i)},
				{ID: "b", Text: fmt.Sprint(i*i + 1)},
				{ID: "c", Text: fmt.Sprint(i + i + 1)},
				{ID: "d", Text: fmt.Sprint(i)},
			},
			CorrectOption: "a",
		})
		if err != nil {
			fmt.Printf("Error adding question %d: %v\n", i, err)
			continue
		}
		added++
	}
	fmt.Printf("Added %d/%d questions\n", added, questions)

	fmt.Println("\nCandidates (access codes are shown only once):")
	for i := 1; i <= candidates; i++ {
		res, err := candidateService.Create(ctx, &model.CreateCandidateRequest{
			Name:       fmt.Sprintf("Demo Candidate %d", i),
			Email:      fmt.Sprintf("candidate%d+%s@example.com", i, pos.ID.String()[:8]),
			PositionID: pos.ID,
		})
		if err != nil {
			if errors.Is(err, service.ErrEmailTaken) {
				fmt.Printf("  candidate %d already exists, skipped\n", i)
				continue
			}
			log.Fatal().Err(err).Msg("Failed to create candidate")
		}
		fmt.Printf("  %-40s %s\n", res.Candidate.Email, res.AccessCode)
	}

	fmt.Println("\nSeed completed!")
}
