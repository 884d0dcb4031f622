package models

import "time"

type BatchJobStatus string

const (
	JobPending   BatchJobStatus = "pending"
	JobRunning   BatchJobStatus = "running"
	JobCompleted BatchJobStatus = "completed"
	JobFailed    BatchJobStatus = "failed"
)

type BatchJobType string

const (
	JobSummaries        BatchJobType = "summaries"
	JobTags             BatchJobType = "tags"
	JobSummariesAndTags BatchJobType = "summaries+tags"
)

func IsValidJobType(t string) bool {
	switch BatchJobType(t) {
	case JobSummaries, JobTags, JobSummariesAndTags:
		return true
	}
	return false
}

func (t BatchJobType) WantsSummaries() bool {
	return t == JobSummaries || t == JobSummariesAndTags
}

func (t BatchJobType) WantsTags() bool {
	return t == JobTags || t == JobSummariesAndTags
}

// BatchJob tracks one AI metadata run. It lives inside the owning project's
// batchUpdateJobs array so clients can poll the project.
type BatchJob struct {
	JobID          string         `bson:"jobID" json:"jobID"`
	Type           BatchJobType   `bson:"type" json:"type"`
	Status         BatchJobStatus `bson:"status" json:"status"`
	ProcessedPages int            `bson:"processedPages" json:"processedPages"`
	FailedPages    int            `bson:"failedPages" json:"failedPages"`
	TotalPages     int            `bson:"totalPages" json:"totalPages"`
	Error          string         `bson:"error,omitempty" json:"error,omitempty"`
	RanBy          string         `bson:"ranBy" json:"ranBy"`
	StartedAt      time.Time      `bson:"startedAt" json:"startedAt"`
	EndedAt        *time.Time     `bson:"endedAt,omitempty" json:"endedAt,omitempty"`
}

func (j BatchJob) Active() bool {
	return j.Status == JobPending || j.Status == JobRunning
}

// PageMetadata is the AI output for a single book page.
type PageMetadata struct {
	BookID      string    `bson:"bookID" json:"bookID"`
	PageID      string    `bson:"pageID" json:"pageID"`
	PageTitle   string    `bson:"pageTitle" json:"pageTitle"`
	JobID       string    `bson:"jobID" json:"jobID"`
	Summary     string    `bson:"summary,omitempty" json:"summary,omitempty"`
	Tags        []string  `bson:"tags,omitempty" json:"tags,omitempty"`
	GeneratedAt time.Time `bson:"generatedAt" json:"generatedAt"`
}
