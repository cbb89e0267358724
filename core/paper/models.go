package paper

import (
	"encoding/json"
	"time"
)

// Difficulty levels
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

var Difficulties = []string{DifficultyEasy, DifficultyMedium, DifficultyHard}

type (
	// Part is one section of a paper: a group of questions sharing marking rules.
	Part struct {
		ID               string  `json:"id" validate:"omitempty,max=64"`
		Name             string  `json:"name" validate:"required,notblank,max=200"`
		Questions        int     `json:"questions" validate:"gt=0"`
		MarksPerQuestion float64 `json:"marksPerQuestion" validate:"gte=0"`
		Difficulty       string  `json:"difficulty" validate:"required,difficulty"`
		StepMarking      bool    `json:"stepMarking"`
		PartialCredit    int     `json:"partialCredit" validate:"gte=0,lte=100"`
	}

	// Paper is an immutable exam-paper configuration.
	Paper struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Course    string    `json:"course"`
		Parts     []Part    `json:"parts"`
		CreatedAt time.Time `json:"createdAt"`
	}

	NewPaper struct {
		Title  string `json:"title" validate:"required,notblank,max=200"`
		Course string `json:"course" validate:"required,notblank,max=200"`
		Parts  []Part `json:"parts" validate:"required,min=1,dive"`
	}
)

// Marks is the maximum score for the part.
func (p Part) Marks() float64 {
	return float64(p.Questions) * p.MarksPerQuestion
}

// TotalMarks is always derived from the parts.
func (p Paper) TotalMarks() float64 {
	var total float64
	for _, part := range p.Parts {
		total += part.Marks()
	}
	return total
}

func (p Paper) MarshalJSON() ([]byte, error) {
	type paper Paper // no MarshalJSON, no recursion
	return json.Marshal(struct {
		paper
		TotalMarks float64 `json:"totalMarks"`
	}{paper(p), p.TotalMarks()})
}

// copyParts keeps stored papers immutable from the caller's side.
func copyParts(parts []Part) []Part {
	if parts == nil {
		return nil
	}
	cp := make([]Part, len(parts))
	copy(cp, parts)
	return cp
}

// Clone returns a deep copy of the paper.
func (p Paper) Clone() Paper {
	p.Parts = copyParts(p.Parts)
	return p
}
