package collections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conductor/internal/apperr"
	"conductor/internal/models"
	"conductor/internal/textutil"
)

// Service manages the collections collection. Books is read to validate and
// resolve book resources.
type Service struct {
	Colls *mongo.Collection
	Books *mongo.Collection
}

// ChildCollections implements ChildLookup over MongoDB.
func (s *Service) ChildCollections(ctx context.Context, collID string) ([]string, error) {
	var c models.Collection
	err := s.Colls.FindOne(ctx, bson.M{"collID": collID},
		options.FindOne().SetProjection(bson.M{"resources": 1})).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.ChildCollections(), nil
}

// Patch holds the editable collection fields. Nil means unchanged.
type Patch struct {
	Title      *string   `json:"title"`
	CoverPhoto *string   `json:"coverPhoto"`
	Privacy    *string   `json:"privacy"`
	Program    *string   `json:"program"`
	Locations  *[]string `json:"locations"`
	AutoManage *bool     `json:"autoManage"`
}

func validateLocations(locs []string) error {
	for _, l := range locs {
		if !models.IsValidLocation(l) {
			return apperr.Newf(apperr.CodeBadRequest, "unknown location %q", l)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, c *models.Collection) error {
	c.Title = strings.TrimSpace(c.Title)
	if c.Title == "" || c.OrgID == "" {
		return apperr.New(apperr.CodeMissingField, "title and orgID are required")
	}
	if c.Privacy == "" {
		c.Privacy = models.PrivacyPublic
	}
	if !models.IsValidPrivacy(string(c.Privacy)) {
		return apperr.Newf(apperr.CodeBadRequest, "unknown privacy %q", c.Privacy)
	}
	if err := validateLocations(c.Locations); err != nil {
		return err
	}
	if c.AutoManage && strings.TrimSpace(c.Program) == "" {
		return apperr.New(apperr.CodeMissingField, "auto-managed collections need a program")
	}

	now := time.Now().UTC()
	c.CollID = uuid.NewString()
	c.TitleCI = textutil.Fold(c.Title)
	c.Resources = []models.CollectionResource{}
	if c.Locations == nil {
		c.Locations = []string{}
	}
	c.CreatedAt, c.UpdatedAt = now, now

	if _, err := s.Colls.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}

// Get returns a collection if it is visible to orgID.
func (s *Service) Get(ctx context.Context, collID, orgID string) (*models.Collection, error) {
	var c models.Collection
	if err := s.Colls.FindOne(ctx, bson.M{"collID": collID}).Decode(&c); err != nil {
		return nil, apperr.NotFoundOr(err, apperr.CodeCollectionNotFound)
	}
	if !c.VisibleTo(orgID) {
		return nil, apperr.New(apperr.CodeCollectionNotFound, "")
	}
	return &c, nil
}

// ListFilter narrows List. Collections outside OrgID are limited to public ones.
type ListFilter struct {
	OrgID   string
	Privacy string
	Skip    int64
	Limit   int64
}

// ListQuery builds the List filter. A nil result means nothing can match:
// a non-public privacy filter needs an org to scope it.
func ListQuery(f ListFilter) bson.M {
	public := string(models.PrivacyPublic)
	switch {
	case f.Privacy == public:
		return bson.M{"privacy": models.PrivacyPublic}
	case f.Privacy != "" && f.OrgID == "":
		return nil
	case f.Privacy != "":
		return bson.M{"privacy": f.Privacy, "orgID": f.OrgID}
	case f.OrgID != "":
		return bson.M{"$or": bson.A{
			bson.M{"orgID": f.OrgID},
			bson.M{"privacy": models.PrivacyPublic},
		}}
	}
	return bson.M{"privacy": models.PrivacyPublic}
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Collection, int64, error) {
	if f.Privacy != "" && !models.IsValidPrivacy(f.Privacy) {
		return nil, 0, apperr.Newf(apperr.CodeBadRequest, "unknown privacy %q", f.Privacy)
	}
	filter := ListQuery(f)
	if filter == nil {
		return []models.Collection{}, 0, nil
	}

	total, err := s.Colls.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count collections: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "titleCI", Value: 1}, {Key: "collID", Value: 1}}).
		SetSkip(f.Skip).
		SetLimit(f.Limit)
	cursor, err := s.Colls.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find collections: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.Collection{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode collections: %w", err)
	}
	return out, total, nil
}

func (s *Service) Update(ctx context.Context, collID string, p Patch) (*models.Collection, error) {
	var current models.Collection
	if err := s.Colls.FindOne(ctx, bson.M{"collID": collID}).Decode(&current); err != nil {
		return nil, apperr.NotFoundOr(err, apperr.CodeCollectionNotFound)
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, apperr.New(apperr.CodeMissingField, "title cannot be empty")
		}
		set["title"] = title
		set["titleCI"] = textutil.Fold(title)
	}
	if p.CoverPhoto != nil {
		set["coverPhoto"] = *p.CoverPhoto
	}
	if p.Privacy != nil {
		if !models.IsValidPrivacy(*p.Privacy) {
			return nil, apperr.Newf(apperr.CodeBadRequest, "unknown privacy %q", *p.Privacy)
		}
		set["privacy"] = *p.Privacy
	}
	program := current.Program
	if p.Program != nil {
		program = strings.TrimSpace(*p.Program)
		set["program"] = program
	}
	if p.Locations != nil {
		if err := validateLocations(*p.Locations); err != nil {
			return nil, err
		}
		set["locations"] = *p.Locations
	}
	autoManage := current.AutoManage
	if p.AutoManage != nil {
		autoManage = *p.AutoManage
		set["autoManage"] = autoManage
	}
	if autoManage && program == "" {
		return nil, apperr.New(apperr.CodeMissingField, "auto-managed collections need a program")
	}

	var updated models.Collection
	err := s.Colls.FindOneAndUpdate(ctx, bson.M{"collID": collID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err != nil {
		return nil, apperr.NotFoundOr(err, apperr.CodeCollectionNotFound)
	}
	return &updated, nil
}

// Delete removes a collection and every reference to it from parent
// collections.
func (s *Service) Delete(ctx context.Context, collID string) error {
	res, err := s.Colls.DeleteOne(ctx, bson.M{"collID": collID})
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperr.New(apperr.CodeCollectionNotFound, "")
	}
	return s.pullEverywhere(ctx, models.ResourceTypeCollection, collID)
}

// RemoveBookEverywhere drops a deleted book from every collection.
func (s *Service) RemoveBookEverywhere(ctx context.Context, bookID string) error {
	return s.pullEverywhere(ctx, models.ResourceTypeBook, bookID)
}

func (s *Service) pullEverywhere(ctx context.Context, t models.ResourceType, id string) error {
	_, err := s.Colls.UpdateMany(ctx,
		bson.M{"resources.resourceID": id},
		bson.M{"$pull": bson.M{"resources": bson.M{"resourceType": t, "resourceID": id}}},
	)
	if err != nil {
		return fmt.Errorf("remove %s %s from collections: %w", t, id, err)
	}
	return nil
}

// AddResource nests a book or collection inside collID.
func (s *Service) AddResource(ctx context.Context, collID string, res models.CollectionResource) error {
	res.ResourceID = strings.TrimSpace(res.ResourceID)
	if res.ResourceID == "" {
		return apperr.New(apperr.CodeMissingField, "resourceID is required")
	}
	if !models.IsValidResourceType(string(res.ResourceType)) {
		return apperr.Newf(apperr.CodeBadRequest, "unknown resource type %q", res.ResourceType)
	}
	if res.ResourceType == models.ResourceTypeCollection && res.ResourceID == collID {
		return apperr.New(apperr.CodeCollectionCycle, "")
	}

	var parent models.Collection
	if err := s.Colls.FindOne(ctx, bson.M{"collID": collID}).Decode(&parent); err != nil {
		return apperr.NotFoundOr(err, apperr.CodeCollectionNotFound)
	}
	if parent.AutoManage {
		return apperr.New(apperr.CodeCollectionAutoManage, "")
	}
	if parent.HasResource(res.ResourceID) {
		return apperr.New(apperr.CodeResourceDuplicate, "")
	}

	switch res.ResourceType {
	case models.ResourceTypeBook:
		n, err := s.Books.CountDocuments(ctx, bson.M{"bookID": res.ResourceID})
		if err != nil {
			return fmt.Errorf("check book: %w", err)
		}
		if n == 0 {
			return apperr.New(apperr.CodeBookNotFound, "")
		}
	case models.ResourceTypeCollection:
		var child models.Collection
		if err := s.Colls.FindOne(ctx, bson.M{"collID": res.ResourceID}).Decode(&child); err != nil {
			return apperr.NotFoundOr(err, apperr.CodeResourceNotFound)
		}
		if !child.VisibleTo(parent.OrgID) {
			return apperr.New(apperr.CodeResourceNotFound, "")
		}
		cyclic, err := WouldCycle(ctx, s, collID, res.ResourceID)
		if err != nil {
			return err
		}
		if cyclic {
			return apperr.New(apperr.CodeCollectionCycle, "")
		}
	}

	update, err := s.Colls.UpdateOne(ctx,
		bson.M{"collID": collID, "resources.resourceID": bson.M{"$ne": res.ResourceID}},
		bson.M{
			"$push": bson.M{"resources": res},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("add resource: %w", err)
	}
	if update.MatchedCount == 0 {
		return apperr.New(apperr.CodeResourceDuplicate, "")
	}
	return nil
}

func (s *Service) RemoveResource(ctx context.Context, collID, resourceID string) error {
	var c models.Collection
	if err := s.Colls.FindOne(ctx, bson.M{"collID": collID}).Decode(&c); err != nil {
		return apperr.NotFoundOr(err, apperr.CodeCollectionNotFound)
	}
	if c.AutoManage {
		return apperr.New(apperr.CodeCollectionAutoManage, "")
	}
	if !c.HasResource(resourceID) {
		return apperr.New(apperr.CodeResourceNotFound, "")
	}
	_, err := s.Colls.UpdateOne(ctx,
		bson.M{"collID": collID},
		bson.M{
			"$pull": bson.M{"resources": bson.M{"resourceID": resourceID}},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("remove resource: %w", err)
	}
	return nil
}

// ResolvedResource is a collection entry joined with its referent.
type ResolvedResource struct {
	ResourceType models.ResourceType `json:"resourceType"`
	ResourceID   string              `json:"resourceID"`
	Book         *models.Book        `json:"book,omitempty"`
	Collection   *models.Collection  `json:"collection,omitempty"`
}

// Resources returns one page of a collection's entries in stored order,
// joined with the referenced books and collections. Entries whose referent
// no longer exists, or is not visible to orgID, are skipped before paging,
// so the total counts only entries a client can see.
func (s *Service) Resources(ctx context.Context, collID, orgID string, skip, limit int) ([]ResolvedResource, int, error) {
	c, err := s.Get(ctx, collID, orgID)
	if err != nil {
		return nil, 0, err
	}

	var bookIDs, collIDs []string
	for _, r := range c.Resources {
		if r.ResourceType == models.ResourceTypeCollection {
			collIDs = append(collIDs, r.ResourceID)
		} else {
			bookIDs = append(bookIDs, r.ResourceID)
		}
	}

	books := map[string]*models.Book{}
	if len(bookIDs) > 0 {
		var found []models.Book
		if err := findAll(ctx, s.Books, bson.M{"bookID": bson.M{"$in": bookIDs}}, &found); err != nil {
			return nil, 0, err
		}
		for i := range found {
			books[found[i].BookID] = &found[i]
		}
	}
	colls := map[string]*models.Collection{}
	if len(collIDs) > 0 {
		var found []models.Collection
		if err := findAll(ctx, s.Colls, bson.M{"collID": bson.M{"$in": collIDs}}, &found); err != nil {
			return nil, 0, err
		}
		for i := range found {
			if found[i].VisibleTo(orgID) {
				colls[found[i].CollID] = &found[i]
			}
		}
	}

	resolved := make([]ResolvedResource, 0, len(c.Resources))
	for _, r := range c.Resources {
		item := ResolvedResource{ResourceType: r.ResourceType, ResourceID: r.ResourceID}
		if r.ResourceType == models.ResourceTypeCollection {
			item.Collection = colls[r.ResourceID]
			if item.Collection == nil {
				continue
			}
		} else {
			item.Book = books[r.ResourceID]
			if item.Book == nil {
				continue
			}
		}
		resolved = append(resolved, item)
	}
	page := PageSlice(resolved, skip, limit)
	if page == nil {
		page = []ResolvedResource{}
	}
	return page, len(resolved), nil
}

// PageSlice returns items[skip:skip+limit] clamped to the slice bounds.
func PageSlice[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return items[skip:end]
}

func findAll(ctx context.Context, coll *mongo.Collection, filter bson.M, out any) error {
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return fmt.Errorf("find in %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode from %s: %w", coll.Name(), err)
	}
	return nil
}

// SyncAutoManaged replaces an auto-managed collection's resources with the
// books whose program matches the collection's program, ordered by title.
func (s *Service) SyncAutoManaged(ctx context.Context, collID string) (int, error) {
	var c models.Collection
	if err := s.Colls.FindOne(ctx, bson.M{"collID": collID}).Decode(&c); err != nil {
		return 0, apperr.NotFoundOr(err, apperr.CodeCollectionNotFound)
	}
	if !c.AutoManage || c.Program == "" {
		return 0, apperr.New(apperr.CodeBadRequest, "collection is not auto-managed")
	}

	cursor, err := s.Books.Find(ctx, bson.M{"program": c.Program},
		options.Find().
			SetProjection(bson.M{"bookID": 1}).
			SetSort(bson.D{{Key: "titleCI", Value: 1}, {Key: "bookID", Value: 1}}))
	if err != nil {
		return 0, fmt.Errorf("find program books: %w", err)
	}
	defer cursor.Close(ctx)

	var books []models.Book
	if err := cursor.All(ctx, &books); err != nil {
		return 0, fmt.Errorf("decode program books: %w", err)
	}
	resources := make([]models.CollectionResource, 0, len(books))
	for _, b := range books {
		resources = append(resources, models.CollectionResource{ResourceType: models.ResourceTypeBook, ResourceID: b.BookID})
	}

	_, err = s.Colls.UpdateOne(ctx, bson.M{"collID": collID}, bson.M{"$set": bson.M{
		"resources": resources,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return 0, fmt.Errorf("sync collection: %w", err)
	}
	return len(resources), nil
}
