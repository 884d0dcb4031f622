package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ResourceType string

const (
	ResourceTypeBook       ResourceType = "resource"
	ResourceTypeCollection ResourceType = "collection"

	CollectionEntity = "collection"
)

type CollectionPrivacy string

const (
	PrivacyPublic  CollectionPrivacy = "public"
	PrivacyPrivate CollectionPrivacy = "private"
	PrivacyCampus  CollectionPrivacy = "campus"
)

type CollectionResource struct {
	ResourceType ResourceType `bson:"resourceType" json:"resourceType"`
	ResourceID   string       `bson:"resourceID" json:"resourceID"`
}

type Collection struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"-"`
	CollID     string               `bson:"collID" json:"collID"`
	OrgID      string               `bson:"orgID" json:"orgID"`
	Title      string               `bson:"title" json:"title"`
	TitleCI    string               `bson:"titleCI" json:"-"`
	CoverPhoto string               `bson:"coverPhoto,omitempty" json:"coverPhoto,omitempty"`
	Privacy    CollectionPrivacy    `bson:"privacy" json:"privacy"`
	Program    string               `bson:"program,omitempty" json:"program,omitempty"`
	Locations  []string             `bson:"locations" json:"locations"`
	AutoManage bool                 `bson:"autoManage" json:"autoManage"`
	Resources  []CollectionResource `bson:"resources" json:"resources"`
	CreatedAt  time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt" json:"updatedAt"`
}

var ValidPrivacies = map[string]bool{
	string(PrivacyPublic):  true,
	string(PrivacyPrivate): true,
	string(PrivacyCampus):  true,
}

func IsValidPrivacy(p string) bool {
	return ValidPrivacies[p]
}

func IsValidResourceType(t string) bool {
	return t == string(ResourceTypeBook) || t == string(ResourceTypeCollection)
}

func (c *Collection) HasResource(resourceID string) bool {
	for _, r := range c.Resources {
		if r.ResourceID == resourceID {
			return true
		}
	}
	return false
}

// ChildCollections returns the IDs of directly nested collections.
func (c *Collection) ChildCollections() []string {
	var ids []string
	for _, r := range c.Resources {
		if r.ResourceType == ResourceTypeCollection {
			ids = append(ids, r.ResourceID)
		}
	}
	return ids
}

// VisibleTo reports whether a request scoped to orgID may read the collection.
func (c *Collection) VisibleTo(orgID string) bool {
	if c.Privacy == PrivacyPublic || c.Privacy == "" {
		return true
	}
	return orgID != "" && orgID == c.OrgID
}
