package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gradewise/gradewise/core"
	"github.com/gradewise/gradewise/core/grading"
	"github.com/gradewise/gradewise/core/paper"
)

// NewValidator returns a validator set up the way the API sets it up.
func NewValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	paper.InitValidators(validate, translator)
	return validate
}

// Parts returns the parts of a paper worth 10 questions x 2 marks.
func Parts() []paper.Part {
	return []paper.Part{
		{ID: "p1", Name: "Part A", Questions: 10, MarksPerQuestion: 2, Difficulty: paper.DifficultyMedium},
	}
}

func CreatePaper(t *testing.T, repo paper.Repository, title, course string, parts ...paper.Part) paper.Paper {
	if len(parts) == 0 {
		parts = Parts()
	}
	p, err := repo.Put(context.Background(), paper.Paper{
		ID:        paper.NewID(),
		Title:     title,
		Course:    course,
		Parts:     parts,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createPaper() failed: %v", err)
	}
	return p
}

func CreateJob(t *testing.T, repo grading.Repository, paperID string, status string, progress int, completedAt ...time.Time) grading.Job {
	job := grading.Job{
		ID:        grading.NewID(),
		PaperID:   paperID,
		Status:    status,
		Progress:  progress,
		StartedAt: time.Now().UTC(),
	}
	if len(completedAt) > 0 {
		at := completedAt[0].UTC()
		job.CompletedAt = &at
	}
	job, err := repo.Create(context.Background(), job)
	if err != nil {
		t.Fatalf("createJob() failed: %v", err)
	}
	return job
}
