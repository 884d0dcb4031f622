// Package peerreview resolves which rubric governs a project's peer reviews
// and validates rubrics and submitted reviews against them.
package peerreview

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"conductor/internal/apperr"
	"conductor/internal/models"
)

const (
	SystemRubricID = "libretexts-default"
	maxTextLength  = 10000
)

// DefaultRubric is used when neither the project nor its organization
// chose a rubric and no rubric file is configured.
func DefaultRubric() models.PeerReviewRubric {
	return models.PeerReviewRubric{
		RubricID:    SystemRubricID,
		RubricTitle: "LibreTexts Default Peer Review Rubric",
		Headings: []models.RubricHeading{
			{Title: "Content", Order: 1},
			{Title: "Presentation", Order: 4},
		},
		Prompts: []models.RubricPrompt{
			{Order: 2, PromptType: models.Prompt5Likert, PromptText: "The content is accurate and error-free.", PromptRequired: true},
			{Order: 3, PromptType: models.Prompt5Likert, PromptText: "The text covers the subject comprehensively.", PromptRequired: true},
			{Order: 5, PromptType: models.Prompt5Likert, PromptText: "The text is clear and easy to navigate.", PromptRequired: true},
			{Order: 6, PromptType: models.PromptText, PromptText: "Additional comments for the authors."},
		},
	}
}

// LoadRubricFile reads a rubric from YAML and validates it.
func LoadRubricFile(path string) (models.PeerReviewRubric, error) {
	var r models.PeerReviewRubric
	data, err := os.ReadFile(path)
	if err != nil {
		return r, fmt.Errorf("read rubric file: %w", err)
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("parse rubric file %s: %w", path, err)
	}
	if r.RubricID == "" {
		r.RubricID = SystemRubricID
	}
	if err := ValidateRubric(&r); err != nil {
		return r, fmt.Errorf("rubric file %s: %w", path, err)
	}
	return r, nil
}

// ValidateRubric checks structure and normalizes prompt order.
func ValidateRubric(r *models.PeerReviewRubric) error {
	r.RubricTitle = strings.TrimSpace(r.RubricTitle)
	if r.RubricTitle == "" {
		return apperr.New(apperr.CodeRubricInvalid, "rubric title is required")
	}
	if len(r.Prompts) == 0 {
		return apperr.New(apperr.CodeRubricInvalid, "rubric needs at least one prompt")
	}

	orders := map[int]bool{}
	for _, h := range r.Headings {
		if strings.TrimSpace(h.Title) == "" {
			return apperr.New(apperr.CodeRubricInvalid, "headings need a title")
		}
		if orders[h.Order] {
			return apperr.Newf(apperr.CodeRubricInvalid, "duplicate order %d", h.Order)
		}
		orders[h.Order] = true
	}
	for _, p := range r.Prompts {
		if orders[p.Order] {
			return apperr.Newf(apperr.CodeRubricInvalid, "duplicate order %d", p.Order)
		}
		orders[p.Order] = true
		if !models.IsValidPromptType(string(p.PromptType)) {
			return apperr.Newf(apperr.CodeRubricInvalid, "prompt %d has unknown type %q", p.Order, p.PromptType)
		}
		if strings.TrimSpace(p.PromptText) == "" {
			return apperr.Newf(apperr.CodeRubricInvalid, "prompt %d needs text", p.Order)
		}
		if p.PromptType == models.PromptDrop {
			if len(p.PromptOptions) < 2 {
				return apperr.Newf(apperr.CodeRubricInvalid, "dropdown prompt %d needs at least two options", p.Order)
			}
			values := map[string]bool{}
			for _, o := range p.PromptOptions {
				if o.Value == "" || values[o.Value] {
					return apperr.Newf(apperr.CodeRubricInvalid, "dropdown prompt %d has empty or duplicate option values", p.Order)
				}
				values[o.Value] = true
			}
		}
	}

	sort.Slice(r.Headings, func(i, j int) bool { return r.Headings[i].Order < r.Headings[j].Order })
	sort.Slice(r.Prompts, func(i, j int) bool { return r.Prompts[i].Order < r.Prompts[j].Order })
	return nil
}
