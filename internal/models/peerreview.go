package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuthorType string

const (
	AuthorStudent    AuthorType = "student"
	AuthorInstructor AuthorType = "instructor"
)

func IsValidAuthorType(t string) bool {
	return t == string(AuthorStudent) || t == string(AuthorInstructor)
}

// PromptResponse answers one rubric prompt, matched by Order.
type PromptResponse struct {
	PromptType       PromptType `bson:"promptType" json:"promptType"`
	PromptText       string     `bson:"promptText" json:"promptText"`
	Order            int        `bson:"order" json:"order"`
	LikertResponse   int        `bson:"likertResponse,omitempty" json:"likertResponse,omitempty"`
	TextResponse     string     `bson:"textResponse,omitempty" json:"textResponse,omitempty"`
	DropdownResponse string     `bson:"dropdownResponse,omitempty" json:"dropdownResponse,omitempty"`
	CheckboxResponse *bool      `bson:"checkboxResponse,omitempty" json:"checkboxResponse,omitempty"`
}

type PeerReview struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	PeerReviewID string             `bson:"peerReviewID" json:"peerReviewID"`
	ProjectID    string             `bson:"projectID" json:"projectID"`
	RubricID     string             `bson:"rubricID" json:"rubricID"`
	RubricTitle  string             `bson:"rubricTitle" json:"rubricTitle"`
	Author       string             `bson:"author,omitempty" json:"author,omitempty"`
	AuthorEmail  string             `bson:"authorEmail,omitempty" json:"authorEmail,omitempty"`
	AuthorType   AuthorType         `bson:"authorType" json:"authorType"`
	Anonymous    bool               `bson:"anonymous" json:"anonymous"`
	Rating       float64            `bson:"rating" json:"rating"`
	Responses    []PromptResponse   `bson:"responses" json:"responses"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// Redacted hides author identity for anonymous reviews.
func (r PeerReview) Redacted() PeerReview {
	if r.Anonymous {
		r.Author = ""
		r.AuthorEmail = ""
	}
	return r
}
