package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RubricEntity     = "peerreviewrubric"
	PeerReviewEntity = "peerreview"
)

type PromptType string

const (
	Prompt3Likert PromptType = "3-likert"
	Prompt5Likert PromptType = "5-likert"
	Prompt7Likert PromptType = "7-likert"
	PromptText    PromptType = "text"
	PromptDrop    PromptType = "dropdown"
	PromptCheck   PromptType = "checkbox"
)

var ValidPromptTypes = map[string]bool{
	string(Prompt3Likert): true,
	string(Prompt5Likert): true,
	string(Prompt7Likert): true,
	string(PromptText):    true,
	string(PromptDrop):    true,
	string(PromptCheck):   true,
}

func IsValidPromptType(t string) bool {
	return ValidPromptTypes[t]
}

// LikertPoints returns the scale size, or 0 for non-likert prompts.
func (t PromptType) LikertPoints() int {
	switch t {
	case Prompt3Likert:
		return 3
	case Prompt5Likert:
		return 5
	case Prompt7Likert:
		return 7
	}
	return 0
}

type PromptOption struct {
	Index int    `bson:"index" json:"index" yaml:"index"`
	Value string `bson:"value" json:"value" yaml:"value"`
	Text  string `bson:"text" json:"text" yaml:"text"`
}

type RubricHeading struct {
	Title string `bson:"title" json:"title" yaml:"title"`
	Text  string `bson:"text,omitempty" json:"text,omitempty" yaml:"text,omitempty"`
	Order int    `bson:"order" json:"order" yaml:"order"`
}

type RubricPrompt struct {
	Order          int            `bson:"order" json:"order" yaml:"order"`
	PromptType     PromptType     `bson:"promptType" json:"promptType" yaml:"promptType"`
	PromptText     string         `bson:"promptText" json:"promptText" yaml:"promptText"`
	PromptRequired bool           `bson:"promptRequired" json:"promptRequired" yaml:"promptRequired"`
	PromptOptions  []PromptOption `bson:"promptOptions,omitempty" json:"promptOptions,omitempty" yaml:"promptOptions,omitempty"`
}

type PeerReviewRubric struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-" yaml:"-"`
	RubricID     string             `bson:"rubricID" json:"rubricID" yaml:"rubricID"`
	OrgID        string             `bson:"orgID" json:"orgID" yaml:"orgID"`
	IsOrgDefault bool               `bson:"isOrgDefault" json:"isOrgDefault" yaml:"isOrgDefault"`
	RubricTitle  string             `bson:"rubricTitle" json:"rubricTitle" yaml:"rubricTitle"`
	Headings     []RubricHeading    `bson:"headings" json:"headings" yaml:"headings"`
	Prompts      []RubricPrompt     `bson:"prompts" json:"prompts" yaml:"prompts"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt" yaml:"-"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt" yaml:"-"`
}
