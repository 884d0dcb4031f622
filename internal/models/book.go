package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"conductor/internal/textutil"
)

const (
	LocationCentral = "central"
	LocationCampus  = "campus"

	BookEntity = "book"
)

type BookLinks struct {
	Online string `bson:"online,omitempty" json:"online,omitempty"`
	PDF    string `bson:"pdf,omitempty" json:"pdf,omitempty"`
	Buy    string `bson:"buy,omitempty" json:"buy,omitempty"`
	Zip    string `bson:"zip,omitempty" json:"zip,omitempty"`
	Files  string `bson:"files,omitempty" json:"files,omitempty"`
	LMS    string `bson:"lms,omitempty" json:"lms,omitempty"`
}

// Book is a Commons catalog record. BookID is always Library + "-" + CoverID.
type Book struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	BookID         string             `bson:"bookID" json:"bookID"`
	Library        string             `bson:"library" json:"library"`
	CoverID        string             `bson:"coverID" json:"coverID"`
	Title          string             `bson:"title" json:"title"`
	TitleCI        string             `bson:"titleCI" json:"-"`
	Author         string             `bson:"author" json:"author"`
	AuthorCI       string             `bson:"authorCI" json:"-"`
	Affiliation    string             `bson:"affiliation" json:"affiliation"`
	License        string             `bson:"license" json:"license"`
	Subject        string             `bson:"subject" json:"subject"`
	Course         string             `bson:"course" json:"course"`
	Program        string             `bson:"program" json:"program"`
	Location       string             `bson:"location" json:"location"`
	Summary        string             `bson:"summary" json:"summary"`
	Tags           []string           `bson:"tags" json:"tags"`
	Thumbnail      string             `bson:"thumbnail" json:"thumbnail"`
	Links          BookLinks          `bson:"links" json:"links"`
	Rating         float64            `bson:"rating" json:"rating"`
	HasPeerReviews bool               `bson:"hasPeerReviews" json:"hasPeerReviews"`
	ProjectID      string             `bson:"projectID,omitempty" json:"projectID,omitempty"`
	CID            []string           `bson:"cid,omitempty" json:"cid,omitempty"`
	LastUpdated    time.Time          `bson:"lastUpdated" json:"lastUpdated"`
}

// Fields a PUT on a book may not touch.
var ImmutableBookFields = map[string]bool{
	"bookID":  true,
	"library": true,
	"coverID": true,
	"_id":     true,
}

func IsValidLocation(loc string) bool {
	return loc == LocationCentral || loc == LocationCampus
}

func MakeBookID(library, coverID string) string {
	return strings.TrimSpace(library) + "-" + strings.TrimSpace(coverID)
}

// ParseBookID splits a "library-coverID" key. Library shortnames never
// contain a dash, so the first dash separates the two parts.
func ParseBookID(bookID string) (library, coverID string, ok bool) {
	library, coverID, found := strings.Cut(strings.TrimSpace(bookID), "-")
	if !found || library == "" || coverID == "" {
		return "", "", false
	}
	return library, coverID, true
}

// Normalize fills derived fields before a write.
func (b *Book) Normalize() {
	b.Library = strings.ToLower(strings.TrimSpace(b.Library))
	b.CoverID = strings.TrimSpace(b.CoverID)
	b.BookID = MakeBookID(b.Library, b.CoverID)
	b.Title = strings.TrimSpace(b.Title)
	b.TitleCI = textutil.Fold(b.Title)
	b.Author = strings.TrimSpace(b.Author)
	b.AuthorCI = textutil.Fold(b.Author)
	b.Tags = textutil.Dedupe(b.Tags)
	if b.Location == "" {
		b.Location = LocationCentral
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
}
