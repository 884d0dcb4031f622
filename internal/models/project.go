package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const ProjectEntity = "project"

type Project struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ProjectID         string             `bson:"projectID" json:"projectID"`
	OrgID             string             `bson:"orgID" json:"orgID"`
	Title             string             `bson:"title" json:"title"`
	Visibility        string             `bson:"visibility" json:"visibility"`
	AllowAnonPR       bool               `bson:"allowAnonPR" json:"allowAnonPR"`
	PreferredPRRubric string             `bson:"preferredPRRubric,omitempty" json:"preferredPRRubric,omitempty"`
	Rating            float64            `bson:"rating" json:"rating"`
	LibreLibrary      string             `bson:"libreLibrary,omitempty" json:"libreLibrary,omitempty"`
	LibreCoverID      string             `bson:"libreCoverID,omitempty" json:"libreCoverID,omitempty"`
	BatchUpdateJobs   []BatchJob         `bson:"batchUpdateJobs" json:"batchUpdateJobs"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func IsValidVisibility(v string) bool {
	return v == "public" || v == "private"
}

func (p *Project) HasBook() bool {
	return p.LibreLibrary != "" && p.LibreCoverID != ""
}

func (p *Project) BookID() string {
	if !p.HasBook() {
		return ""
	}
	return MakeBookID(p.LibreLibrary, p.LibreCoverID)
}

// ActiveJob returns the pending or running batch job, if any.
func (p *Project) ActiveJob() *BatchJob {
	for i := range p.BatchUpdateJobs {
		if p.BatchUpdateJobs[i].Active() {
			return &p.BatchUpdateJobs[i]
		}
	}
	return nil
}

func (p *Project) Job(jobID string) *BatchJob {
	for i := range p.BatchUpdateJobs {
		if p.BatchUpdateJobs[i].JobID == jobID {
			return &p.BatchUpdateJobs[i]
		}
	}
	return nil
}
