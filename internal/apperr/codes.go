// Package apperr holds the error-code table shared by every handler and the
// error type that carries a code through service layers.
package apperr

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	CodeInternal     Code = "err1"
	CodeNotFound     Code = "err2"
	CodeBadRequest   Code = "err3"
	CodeUnauthorized Code = "err4"
	CodeForbidden    Code = "err5"
	CodeConflict     Code = "err6"
	CodeMissingField Code = "err7"
	CodeUpstream     Code = "err8"

	// Catalog
	CodeBookNotFound    Code = "book_not_found"
	CodeOrgNotFound     Code = "org_not_found"
	CodeInvalidPage     Code = "invalid_pagination"
	CodeImmutableField  Code = "immutable_field"
	CodeBookIDMalformed Code = "book_id_malformed"

	// Collections
	CodeCollectionNotFound   Code = "collection_not_found"
	CodeCollectionCycle      Code = "collection_cycle"
	CodeCollectionAutoManage Code = "collection_auto_managed"
	CodeResourceDuplicate    Code = "resource_duplicate"
	CodeResourceNotFound     Code = "resource_not_found"

	// Peer review
	CodeProjectNotFound  Code = "project_not_found"
	CodeRubricNotFound   Code = "rubric_not_found"
	CodeRubricInvalid    Code = "rubric_invalid"
	CodeReviewInvalid    Code = "review_invalid"
	CodeReviewNotFound   Code = "review_not_found"
	CodeAnonNotAllowed   Code = "anon_review_not_allowed"
	CodeJobActive        Code = "batch_job_active"
	CodeJobNotFound      Code = "batch_job_not_found"
	CodeProjectNoBook    Code = "project_no_book"
	CodeAIUnavailable    Code = "ai_unavailable"
	CodeCourseNotFound   Code = "course_not_found"
	CodeNothingPending   Code = "course_nothing_pending"
	CodeReportNotFound   Code = "report_not_found"
	CodeCIDNotFound      Code = "cid_not_found"
	CodeInvalidDateRange Code = "invalid_date_range"
)

var messages = map[Code]string{
	CodeInternal:     "Sorry, an internal error occurred.",
	CodeNotFound:     "Sorry, that resource was not found.",
	CodeBadRequest:   "Sorry, the request was malformed.",
	CodeUnauthorized: "Sorry, you need to be signed in to do that.",
	CodeForbidden:    "Sorry, you don't have permission to do that.",
	CodeConflict:     "Sorry, that conflicts with existing data.",
	CodeMissingField: "Sorry, a required field is missing.",
	CodeUpstream:     "Sorry, an external service returned an error.",

	CodeBookNotFound:    "Sorry, that book was not found.",
	CodeOrgNotFound:     "Sorry, that organization was not found.",
	CodeInvalidPage:     "Sorry, the page or limit value is invalid.",
	CodeImmutableField:  "Sorry, that field cannot be changed.",
	CodeBookIDMalformed: "Sorry, book identifiers must look like library-coverID.",

	CodeCollectionNotFound:   "Sorry, that collection was not found.",
	CodeCollectionCycle:      "Sorry, a collection cannot contain itself.",
	CodeCollectionAutoManage: "Sorry, resources of an automatically managed collection cannot be edited.",
	CodeResourceDuplicate:    "That resource is already in the collection.",
	CodeResourceNotFound:     "Sorry, that resource was not found.",

	CodeProjectNotFound: "Sorry, that project was not found.",
	CodeRubricNotFound:  "Sorry, that rubric was not found.",
	CodeRubricInvalid:   "Sorry, the rubric is invalid.",
	CodeReviewInvalid:   "Sorry, the review is invalid.",
	CodeReviewNotFound:  "Sorry, that peer review was not found.",
	CodeAnonNotAllowed:  "Sorry, this project does not accept anonymous peer reviews.",
	CodeJobActive:       "A batch job is already running for this project.",
	CodeJobNotFound:     "Sorry, that batch job was not found.",
	CodeProjectNoBook:   "Sorry, this project is not linked to a book.",
	CodeAIUnavailable:   "Sorry, AI metadata generation is not configured.",
	CodeCourseNotFound:  "Sorry, that course was not found.",
	CodeNothingPending:  "There is no pending textbook request for this course.",
	CodeReportNotFound:  "Sorry, that adoption report was not found.",
	CodeCIDNotFound:     "Sorry, that C-ID descriptor was not found.",

	CodeInvalidDateRange: "Sorry, the start date must be before the end date.",
}

// Message returns the user-facing text for a code.
func (c Code) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return messages[CodeInternal]
}

// HTTPStatus maps a code to the response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeBookNotFound, CodeOrgNotFound, CodeCollectionNotFound,
		CodeResourceNotFound, CodeProjectNotFound, CodeRubricNotFound, CodeReviewNotFound,
		CodeJobNotFound, CodeCourseNotFound, CodeReportNotFound, CodeCIDNotFound:
		return http.StatusNotFound
	case CodeBadRequest, CodeMissingField, CodeInvalidPage, CodeImmutableField,
		CodeBookIDMalformed, CodeRubricInvalid, CodeReviewInvalid, CodeProjectNoBook,
		CodeInvalidDateRange:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeAnonNotAllowed:
		return http.StatusForbidden
	case CodeConflict, CodeCollectionCycle, CodeCollectionAutoManage, CodeResourceDuplicate,
		CodeJobActive, CodeNothingPending:
		return http.StatusConflict
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeAIUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
