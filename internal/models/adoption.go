package models

import (
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"conductor/internal/apperr"
)

const AdoptionEntity = "adoptionreport"

type AdoptionResource struct {
	ID      string `bson:"id" json:"id"`
	Title   string `bson:"title" json:"title"`
	Library string `bson:"library" json:"library"`
	Link    string `bson:"link,omitempty" json:"link,omitempty"`
}

type InstructorAdoption struct {
	IsLibreNet  bool     `bson:"isLibreNet" json:"isLibreNet"`
	Institution string   `bson:"institution" json:"institution"`
	Class       string   `bson:"class" json:"class"`
	Term        string   `bson:"term" json:"term"`
	Students    int      `bson:"students" json:"students"`
	ReplaceCost float64  `bson:"replaceCost" json:"replaceCost"`
	PrintCost   float64  `bson:"printCost" json:"printCost"`
	Access      []string `bson:"access" json:"access"`
}

type StudentAdoption struct {
	Use         string   `bson:"use" json:"use"`
	Institution string   `bson:"institution" json:"institution"`
	Class       string   `bson:"class" json:"class"`
	Instructor  string   `bson:"instructor" json:"instructor"`
	Quality     int      `bson:"quality,omitempty" json:"quality,omitempty"`
	Navigation  int      `bson:"navigation,omitempty" json:"navigation,omitempty"`
	PrintCost   float64  `bson:"printCost" json:"printCost"`
	Access      []string `bson:"access" json:"access"`
}

type AdoptionReport struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"-"`
	ReportID   string              `bson:"reportID" json:"reportID"`
	Email      string              `bson:"email" json:"email"`
	Name       string              `bson:"name" json:"name"`
	Role       string              `bson:"role" json:"role"`
	Resource   AdoptionResource    `bson:"resource" json:"resource"`
	Instructor *InstructorAdoption `bson:"instructor,omitempty" json:"instructor,omitempty"`
	Student    *StudentAdoption    `bson:"student,omitempty" json:"student,omitempty"`
	Comments   string              `bson:"comments,omitempty" json:"comments,omitempty"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
}

var StudentUses = map[string]bool{
	"primary":     true,
	"supplement":  true,
	"recommended": true,
	"notused":     true,
}

// Validate checks the role-specific sections of a report. It does not check
// that the referenced book exists.
func (r *AdoptionReport) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	if r.Email == "" || r.Name == "" || r.Resource.ID == "" {
		return apperr.New(apperr.CodeMissingField, "email, name, and resource.id are required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return apperr.Newf(apperr.CodeBadRequest, "invalid email address %q", r.Email)
	}

	switch r.Role {
	case string(AuthorInstructor):
		in := r.Instructor
		if in == nil || strings.TrimSpace(in.Institution) == "" || strings.TrimSpace(in.Class) == "" || strings.TrimSpace(in.Term) == "" {
			return apperr.New(apperr.CodeMissingField, "instructor reports need institution, class, and term")
		}
		if in.Students < 0 || in.ReplaceCost < 0 || in.PrintCost < 0 {
			return apperr.New(apperr.CodeBadRequest, "student counts and costs cannot be negative")
		}
		r.Student = nil
	case string(AuthorStudent):
		st := r.Student
		if st == nil || !StudentUses[st.Use] {
			return apperr.New(apperr.CodeBadRequest, "student reports need a valid use")
		}
		if st.Quality != 0 && (st.Quality < 1 || st.Quality > 5) {
			return apperr.New(apperr.CodeBadRequest, "quality must be between 1 and 5")
		}
		if st.Navigation != 0 && (st.Navigation < 1 || st.Navigation > 5) {
			return apperr.New(apperr.CodeBadRequest, "navigation must be between 1 and 5")
		}
		if st.PrintCost < 0 {
			return apperr.New(apperr.CodeBadRequest, "print cost cannot be negative")
		}
		r.Instructor = nil
	default:
		return apperr.Newf(apperr.CodeBadRequest, "invalid role %q", r.Role)
	}
	return nil
}

// AdoptionSummary aggregates the reports filed against one book.
type AdoptionSummary struct {
	BookID          string `bson:"_id" json:"bookID"`
	Reports         int    `bson:"reports" json:"reports"`
	Instructors     int    `bson:"instructors" json:"instructors"`
	Students        int    `bson:"students" json:"students"`
	StudentsReached int    `bson:"studentsReached" json:"studentsReached"`
}
