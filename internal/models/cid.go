package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CIDEntity = "ciddescriptor"

// CIDDescriptor is a California course identification (C-ID) descriptor.
type CIDDescriptor struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Descriptor     string             `bson:"descriptor" json:"descriptor"`
	Title          string             `bson:"title" json:"title"`
	TitleCI        string             `bson:"titleCI" json:"-"`
	Description    string             `bson:"description" json:"description"`
	DescriptorType string             `bson:"descriptorType,omitempty" json:"descriptorType,omitempty"`
	Approved       *time.Time         `bson:"approved,omitempty" json:"approved,omitempty"`
	Expires        *time.Time         `bson:"expires,omitempty" json:"expires,omitempty"`
}
