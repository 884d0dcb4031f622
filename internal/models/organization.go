package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const OrgEntity = "organization"

// Organization owns a campus catalog. Books match the catalog by course or
// program tag, or by explicit membership in CustomCatalog.
type Organization struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	OrgID               string             `bson:"orgID" json:"orgID"`
	Name                string             `bson:"name" json:"name"`
	ShortName           string             `bson:"shortName" json:"shortName"`
	CatalogMatchingTags []string           `bson:"catalogMatchingTags" json:"catalogMatchingTags"`
	CustomCatalog       []string           `bson:"customCatalog" json:"customCatalog"`
	DefaultRubricID     string             `bson:"defaultRubricID,omitempty" json:"defaultRubricID,omitempty"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
}
