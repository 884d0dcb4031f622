package peerreview

import (
	"math"
	"strings"
	"unicode/utf8"

	"conductor/internal/apperr"
	"conductor/internal/models"
)

func invalid(format string, args ...any) error {
	return apperr.Newf(apperr.CodeReviewInvalid, format, args...)
}

// ValidateReview checks a submitted review against the project's settings
// and the rubric it is answered against, and copies prompt metadata from the
// rubric onto each response.
func ValidateReview(review *models.PeerReview, rubric models.PeerReviewRubric, project *models.Project) error {
	if review.Anonymous && !project.AllowAnonPR {
		return apperr.New(apperr.CodeAnonNotAllowed, "")
	}
	if !models.IsValidAuthorType(string(review.AuthorType)) {
		return invalid("authorType must be student or instructor")
	}
	review.Author = strings.TrimSpace(review.Author)
	if !review.Anonymous && review.Author == "" {
		return invalid("author is required unless the review is anonymous")
	}
	if review.Rating < 0 || review.Rating > 5 || math.IsNaN(review.Rating) {
		return invalid("rating must be between 0 and 5")
	}

	byOrder := make(map[int]models.PromptResponse, len(review.Responses))
	for _, resp := range review.Responses {
		if _, dup := byOrder[resp.Order]; dup {
			return invalid("prompt %d answered twice", resp.Order)
		}
		byOrder[resp.Order] = resp
	}

	prompts := make(map[int]bool, len(rubric.Prompts))
	responses := make([]models.PromptResponse, 0, len(rubric.Prompts))
	for _, prompt := range rubric.Prompts {
		prompts[prompt.Order] = true
		resp, answered := byOrder[prompt.Order]
		if answered && isEmpty(resp, prompt.PromptType) {
			answered = false
		}
		if !answered {
			if prompt.PromptRequired {
				return invalid("prompt %d is required", prompt.Order)
			}
			continue
		}
		if err := checkResponse(resp, prompt); err != nil {
			return err
		}
		resp.PromptType = prompt.PromptType
		resp.PromptText = prompt.PromptText
		responses = append(responses, resp)
	}
	for order := range byOrder {
		if !prompts[order] {
			return invalid("response to unknown prompt %d", order)
		}
	}

	review.RubricID = rubric.RubricID
	review.RubricTitle = rubric.RubricTitle
	review.Responses = responses
	return nil
}

func isEmpty(resp models.PromptResponse, t models.PromptType) bool {
	switch {
	case t.LikertPoints() > 0:
		return resp.LikertResponse == 0
	case t == models.PromptText:
		return strings.TrimSpace(resp.TextResponse) == ""
	case t == models.PromptDrop:
		return resp.DropdownResponse == ""
	case t == models.PromptCheck:
		return resp.CheckboxResponse == nil
	}
	return true
}

func checkResponse(resp models.PromptResponse, prompt models.RubricPrompt) error {
	switch t := prompt.PromptType; {
	case t.LikertPoints() > 0:
		if resp.LikertResponse < 1 || resp.LikertResponse > t.LikertPoints() {
			return invalid("prompt %d expects a value from 1 to %d", prompt.Order, t.LikertPoints())
		}
	case t == models.PromptText:
		if utf8.RuneCountInString(resp.TextResponse) > maxTextLength {
			return invalid("prompt %d response is too long", prompt.Order)
		}
	case t == models.PromptDrop:
		for _, o := range prompt.PromptOptions {
			if o.Value == resp.DropdownResponse {
				return nil
			}
		}
		return invalid("prompt %d has no option %q", prompt.Order, resp.DropdownResponse)
	case t == models.PromptCheck:
		if prompt.PromptRequired && !*resp.CheckboxResponse {
			return invalid("prompt %d must be checked", prompt.Order)
		}
	}
	return nil
}

// MeanRating averages review ratings to one decimal place. No reviews
// yields 0.
func MeanRating(ratings []float64) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return math.Round(sum/float64(len(ratings))*10) / 10
}
