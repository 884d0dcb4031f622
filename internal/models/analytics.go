package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"conductor/internal/apperr"
)

const CourseEntity = "analyticscourse"

type TextbookStatus string

const (
	TextbookNone     TextbookStatus = "none"
	TextbookPending  TextbookStatus = "pending"
	TextbookApproved TextbookStatus = "approved"
	TextbookDenied   TextbookStatus = "denied"
)

type AnalyticsCourse struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	CourseID          string             `bson:"courseID" json:"courseID"`
	OrgID             string             `bson:"orgID" json:"orgID"`
	Title             string             `bson:"title" json:"title"`
	Term              string             `bson:"term" json:"term"`
	StartDate         time.Time          `bson:"startDate" json:"startDate"`
	EndDate           time.Time          `bson:"endDate" json:"endDate"`
	Owner             string             `bson:"owner" json:"owner"`
	TextbookStatus    TextbookStatus     `bson:"textbookStatus" json:"textbookStatus"`
	TextbookID        string             `bson:"textbookID,omitempty" json:"textbookID,omitempty"`
	PendingTextbookID string             `bson:"pendingTextbookID,omitempty" json:"pendingTextbookID,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func ValidateCourseDates(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperr.New(apperr.CodeMissingField, "startDate and endDate are required")
	}
	if !start.Before(end) {
		return apperr.New(apperr.CodeInvalidDateRange, "")
	}
	return nil
}
