// Package catalog builds the Commons catalog queries: which books an
// organization's catalog contains, how they are filtered, sorted and paged.
package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"conductor/internal/apperr"
	"conductor/internal/models"
)

const (
	SortTitle     = "title"
	SortAuthor    = "author"
	SortRandom    = "random"
	SortRelevance = "relevance"

	DefaultLimit = 10
	MaxLimit     = 100
)

// Query is a validated catalog request.
type Query struct {
	Search      string
	Library     string
	Subject     string
	Location    string
	Author      string
	Affiliation string
	License     string
	Course      string
	Program     string
	CID         string
	Sort        string
	Page        int
	Limit       int
}

// ParseQuery reads and validates catalog query parameters.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{
		Search:      strings.TrimSpace(v.Get("search")),
		Library:     strings.TrimSpace(v.Get("library")),
		Subject:     strings.TrimSpace(v.Get("subject")),
		Location:    strings.TrimSpace(v.Get("location")),
		Author:      strings.TrimSpace(v.Get("author")),
		Affiliation: strings.TrimSpace(v.Get("affiliation")),
		License:     strings.TrimSpace(v.Get("license")),
		Course:      strings.TrimSpace(v.Get("course")),
		Program:     strings.TrimSpace(v.Get("program")),
		CID:         strings.TrimSpace(v.Get("cid")),
		Sort:        strings.ToLower(strings.TrimSpace(v.Get("sort"))),
		Page:        1,
		Limit:       DefaultLimit,
	}

	switch q.Sort {
	case "":
		q.Sort = SortTitle
		if q.Search != "" {
			q.Sort = SortRelevance
		}
	case SortTitle, SortAuthor, SortRandom:
	case SortRelevance:
		if q.Search == "" {
			q.Sort = SortTitle
		}
	default:
		return q, apperr.Newf(apperr.CodeBadRequest, "unknown sort %q", q.Sort)
	}

	if q.Location != "" && !models.IsValidLocation(q.Location) {
		return q, apperr.Newf(apperr.CodeBadRequest, "unknown location %q", q.Location)
	}

	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return q, apperr.New(apperr.CodeInvalidPage, "")
		}
		q.Page = n
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxLimit {
			return q, apperr.New(apperr.CodeInvalidPage, "")
		}
		q.Limit = n
	}
	return q, nil
}
