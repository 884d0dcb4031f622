package catalog

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"conductor/internal/models"
)

// OrgMatch returns the filter selecting the books in an organization's
// catalog. The central commons sees every book. ok is false when the
// organization has neither matching tags nor a custom catalog, in which case
// nothing can match and callers should skip the query.
func OrgMatch(org *models.Organization, central bool) (filter bson.M, ok bool) {
	if central {
		return bson.M{}, true
	}
	if org == nil {
		return nil, false
	}
	var or bson.A
	if len(org.CatalogMatchingTags) > 0 {
		or = append(or,
			bson.M{"course": bson.M{"$in": org.CatalogMatchingTags}},
			bson.M{"program": bson.M{"$in": org.CatalogMatchingTags}},
		)
	}
	if len(org.CustomCatalog) > 0 {
		or = append(or, bson.M{"bookID": bson.M{"$in": org.CustomCatalog}})
	}
	if len(or) == 0 {
		return nil, false
	}
	return bson.M{"$or": or}, true
}

// FieldMatch returns the equality filters requested by q, excluding search.
func FieldMatch(q Query) bson.M {
	m := bson.M{}
	set := func(field, value string) {
		if value != "" {
			m[field] = value
		}
	}
	set("library", q.Library)
	set("subject", q.Subject)
	set("location", q.Location)
	set("author", q.Author)
	set("affiliation", q.Affiliation)
	set("license", q.License)
	set("course", q.Course)
	set("program", q.Program)
	if q.CID != "" {
		m["cid"] = bson.M{"$in": bson.A{q.CID}}
	}
	return m
}

func combine(filters ...bson.M) bson.M {
	var parts bson.A
	for _, f := range filters {
		if len(f) > 0 {
			parts = append(parts, f)
		}
	}
	switch len(parts) {
	case 0:
		return bson.M{}
	case 1:
		return parts[0].(bson.M)
	default:
		return bson.M{"$and": parts}
	}
}

func sortStage(q Query) bson.D {
	switch q.Sort {
	case SortAuthor:
		return bson.D{{Key: "$sort", Value: bson.D{{Key: "authorCI", Value: 1}, {Key: "titleCI", Value: 1}, {Key: "bookID", Value: 1}}}}
	case SortRelevance:
		return bson.D{{Key: "$sort", Value: bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}, {Key: "bookID", Value: 1}}}}
	default:
		return bson.D{{Key: "$sort", Value: bson.D{{Key: "titleCI", Value: 1}, {Key: "bookID", Value: 1}}}}
	}
}

// matchStages returns the leading $match stages. A $text match must be the
// first stage of an aggregation, so search gets its own stage.
func matchStages(org *models.Organization, q Query, central bool) (mongo.Pipeline, bool) {
	orgFilter, ok := OrgMatch(org, central)
	if !ok {
		return nil, false
	}
	var p mongo.Pipeline
	if q.Search != "" {
		p = append(p, bson.D{{Key: "$match", Value: bson.M{"$text": bson.M{"$search": q.Search}}}})
	}
	if rest := combine(orgFilter, FieldMatch(q)); len(rest) > 0 {
		p = append(p, bson.D{{Key: "$match", Value: rest}})
	}
	return p, true
}

// BuildPipeline assembles the catalog aggregation. The result is a single
// document {total: [{count}], books: [...]}. ok is false when the catalog
// is empty by construction.
func BuildPipeline(org *models.Organization, q Query, central bool) (mongo.Pipeline, bool) {
	p, ok := matchStages(org, q, central)
	if !ok {
		return nil, false
	}

	var page bson.A
	if q.Sort == SortRandom {
		page = bson.A{bson.M{"$sample": bson.M{"size": q.Limit}}}
	} else {
		p = append(p, sortStage(q))
		page = bson.A{
			bson.M{"$skip": (q.Page - 1) * q.Limit},
			bson.M{"$limit": q.Limit},
		}
	}

	p = append(p, bson.D{{Key: "$facet", Value: bson.M{
		"total": bson.A{bson.M{"$count": "count"}},
		"books": page,
	}}})
	return p, true
}

// filterFields are the attributes offered as catalog filters.
var filterFields = []string{"library", "subject", "author", "affiliation", "license", "course", "program"}

// BuildFiltersPipeline collects the distinct filter values present in an
// organization's catalog.
func BuildFiltersPipeline(org *models.Organization, central bool) (mongo.Pipeline, bool) {
	p, ok := matchStages(org, Query{}, central)
	if !ok {
		return nil, false
	}
	group := bson.D{{Key: "_id", Value: nil}}
	for _, f := range filterFields {
		group = append(group, bson.E{Key: f, Value: bson.M{"$addToSet": "$" + f}})
	}
	return append(p, bson.D{{Key: "$group", Value: group}}), true
}
