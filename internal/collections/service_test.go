package collections

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"conductor/internal/apperr"
	"conductor/internal/models"
)

func codeOf(err error) apperr.Code {
	return apperr.From(err).Code
}

func collDoc(collID string, extra ...bson.E) bson.D {
	d := bson.D{{Key: "collID", Value: collID}, {Key: "orgID", Value: "org1"}, {Key: "privacy", Value: "public"}}
	return append(d, extra...)
}

func resources(entries ...[2]string) bson.E {
	arr := bson.A{}
	for _, e := range entries {
		arr = append(arr, bson.D{{Key: "resourceType", Value: e[0]}, {Key: "resourceID", Value: e[1]}})
	}
	return bson.E{Key: "resources", Value: arr}
}

func TestAddResourceValidation(t *testing.T) {
	svc := &Service{}
	ctx := context.Background()

	err := svc.AddResource(ctx, "c1", models.CollectionResource{ResourceType: models.ResourceTypeCollection, ResourceID: "c1"})
	assert.Equal(t, apperr.CodeCollectionCycle, codeOf(err))

	err = svc.AddResource(ctx, "c1", models.CollectionResource{ResourceType: "page", ResourceID: "x"})
	assert.Equal(t, apperr.CodeBadRequest, codeOf(err))

	err = svc.AddResource(ctx, "c1", models.CollectionResource{ResourceType: models.ResourceTypeBook})
	assert.Equal(t, apperr.CodeMissingField, codeOf(err))
}

func TestAddResource(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("auto-managed collections reject edits", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll, Books: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch,
			collDoc("c1", bson.E{Key: "autoManage", Value: true}, bson.E{Key: "program", Value: "ASCCC"})))

		err := svc.AddResource(context.Background(), "c1", models.CollectionResource{ResourceType: models.ResourceTypeBook, ResourceID: "chem-1"})
		assert.Equal(t, apperr.CodeCollectionAutoManage, codeOf(err))
	})

	mt.Run("duplicate resource", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll, Books: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch,
			collDoc("c1", resources([2]string{"resource", "chem-1"}))))

		err := svc.AddResource(context.Background(), "c1", models.CollectionResource{ResourceType: models.ResourceTypeBook, ResourceID: "chem-1"})
		assert.Equal(t, apperr.CodeResourceDuplicate, codeOf(err))
	})

	mt.Run("missing book", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll, Books: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch, collDoc("c1")),
			mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch),
		)

		err := svc.AddResource(context.Background(), "c1", models.CollectionResource{ResourceType: models.ResourceTypeBook, ResourceID: "chem-404"})
		assert.Equal(t, apperr.CodeBookNotFound, codeOf(err))
	})

	mt.Run("transitive cycle", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll, Books: mt.Coll}
		mt.AddMockResponses(
			// parent
			mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch, collDoc("parent")),
			// child being added
			mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch,
				collDoc("child", resources([2]string{"collection", "parent"}))),
			// child's children during the walk
			mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch,
				collDoc("child", resources([2]string{"collection", "parent"}))),
		)

		err := svc.AddResource(context.Background(), "parent", models.CollectionResource{ResourceType: models.ResourceTypeCollection, ResourceID: "child"})
		assert.Equal(t, apperr.CodeCollectionCycle, codeOf(err))
	})

	mt.Run("adds a book", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll, Books: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch, collDoc("c1")),
			mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		err := svc.AddResource(context.Background(), "c1", models.CollectionResource{ResourceType: models.ResourceTypeBook, ResourceID: "chem-1"})
		assert.NoError(t, err)
	})
}

func TestDelete(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("cascades to parents", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 2}),
		)
		require.NoError(t, svc.Delete(context.Background(), "c1"))
	})

	mt.Run("not found", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		assert.Equal(t, apperr.CodeCollectionNotFound, codeOf(svc.Delete(context.Background(), "c1")))
	})
}

func TestGetHidesPrivateCollections(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("other org", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch, bson.D{
			{Key: "collID", Value: "c1"}, {Key: "orgID", Value: "org1"}, {Key: "privacy", Value: "private"},
		}))
		_, err := svc.Get(context.Background(), "c1", "org2")
		assert.Equal(t, apperr.CodeCollectionNotFound, codeOf(err))
	})
}

func TestResourcesResolvesInOrder(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("books only, dangling skipped", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll, Books: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch,
				collDoc("c1", resources(
					[2]string{"resource", "bio-2"},
					[2]string{"resource", "gone-9"},
					[2]string{"resource", "chem-1"},
				))),
			mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch,
				bson.D{{Key: "bookID", Value: "chem-1"}, {Key: "title", Value: "Chem"}},
				bson.D{{Key: "bookID", Value: "bio-2"}, {Key: "title", Value: "Bio"}},
			),
		)

		items, total, err := svc.Resources(context.Background(), "c1", "", 0, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, items, 2)
		assert.Equal(t, "bio-2", items[0].ResourceID)
		assert.Equal(t, "Chem", items[1].Book.Title)
	})

	mt.Run("total and paging ignore hidden entries", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll, Books: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch,
				collDoc("c1", resources(
					[2]string{"collection", "secret"},
					[2]string{"resource", "bio-2"},
					[2]string{"collection", "open"},
				))),
			mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch,
				bson.D{{Key: "bookID", Value: "bio-2"}, {Key: "title", Value: "Bio"}},
			),
			mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch,
				bson.D{{Key: "collID", Value: "secret"}, {Key: "orgID", Value: "org9"}, {Key: "privacy", Value: "private"}},
				bson.D{{Key: "collID", Value: "open"}, {Key: "orgID", Value: "org9"}, {Key: "privacy", Value: "public"}},
			),
		)

		items, total, err := svc.Resources(context.Background(), "c1", "", 1, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, items, 1)
		assert.Equal(t, "open", items[0].ResourceID)
	})

	mt.Run("page past the end", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll, Books: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch, collDoc("c1")))

		items, total, err := svc.Resources(context.Background(), "c1", "", 20, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})
}

func TestRemoveResource(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("auto-managed collections reject edits", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch,
			collDoc("c1", bson.E{Key: "autoManage", Value: true}, bson.E{Key: "program", Value: "ASCCC"},
				resources([2]string{"resource", "chem-1"}))))

		err := svc.RemoveResource(context.Background(), "c1", "chem-1")
		assert.Equal(t, apperr.CodeCollectionAutoManage, codeOf(err))
		assert.Equal(t, http.StatusConflict, codeOf(err).HTTPStatus())
	})

	mt.Run("resource not in collection", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch,
			collDoc("c1", resources([2]string{"resource", "chem-1"}))))

		err := svc.RemoveResource(context.Background(), "c1", "bio-2")
		assert.Equal(t, apperr.CodeResourceNotFound, codeOf(err))
	})

	mt.Run("collection not found", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch))

		err := svc.RemoveResource(context.Background(), "c404", "chem-1")
		assert.Equal(t, apperr.CodeCollectionNotFound, codeOf(err))
	})

	mt.Run("pulls the entry", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch,
				collDoc("c1", resources([2]string{"resource", "chem-1"}, [2]string{"resource", "bio-2"}))),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		require.NoError(t, svc.RemoveResource(context.Background(), "c1", "chem-1"))

		events := mt.GetAllStartedEvents()
		require.Len(t, events, 2)
		update := events[1].Command
		assert.Equal(t, "c1", update.Lookup("updates", "0", "q", "collID").StringValue())
		assert.Equal(t, "chem-1", update.Lookup("updates", "0", "u", "$pull", "resources", "resourceID").StringValue())
	})
}

func TestSyncAutoManaged(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("replaces resources with program books by title", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll, Books: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch,
				collDoc("c1", bson.E{Key: "autoManage", Value: true}, bson.E{Key: "program", Value: "ASCCC"},
					resources([2]string{"resource", "stale-1"}))),
			mtest.CreateCursorResponse(0, "test.books", mtest.FirstBatch,
				bson.D{{Key: "bookID", Value: "bio-2"}},
				bson.D{{Key: "bookID", Value: "chem-1"}},
			),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
		)

		n, err := svc.SyncAutoManaged(context.Background(), "c1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		events := mt.GetAllStartedEvents()
		require.Len(t, events, 3)
		find := events[1].Command
		assert.Equal(t, "ASCCC", find.Lookup("filter", "program").StringValue())
		sortKeys, err := find.Lookup("sort").Document().Elements()
		require.NoError(t, err)
		require.Len(t, sortKeys, 2)
		assert.Equal(t, "titleCI", sortKeys[0].Key())
		assert.Equal(t, "bookID", sortKeys[1].Key())

		set := events[2].Command
		assert.Equal(t, "bio-2", set.Lookup("updates", "0", "u", "$set", "resources", "0", "resourceID").StringValue())
		assert.Equal(t, "chem-1", set.Lookup("updates", "0", "u", "$set", "resources", "1", "resourceID").StringValue())
		_, err = set.LookupErr("updates", "0", "u", "$set", "resources", "2")
		assert.Error(t, err)
	})

	mt.Run("rejects collections that are not auto-managed", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll, Books: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch, collDoc("c1")))

		_, err := svc.SyncAutoManaged(context.Background(), "c1")
		assert.Equal(t, apperr.CodeBadRequest, codeOf(err))
		assert.Len(t, mt.GetAllStartedEvents(), 1)
	})

	mt.Run("collection not found", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll, Books: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.collections", mtest.FirstBatch))

		_, err := svc.SyncAutoManaged(context.Background(), "c404")
		assert.Equal(t, apperr.CodeCollectionNotFound, codeOf(err))
	})
}

func TestPageSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, PageSlice(items, 2, 2))
	assert.Equal(t, []int{5}, PageSlice(items, 4, 10))
	assert.Nil(t, PageSlice(items, 9, 2))
	assert.Equal(t, items, PageSlice(items, -1, 0))
}

func TestListQuery(t *testing.T) {
	assert.Equal(t, bson.M{"privacy": models.PrivacyPublic}, ListQuery(ListFilter{}))
	assert.Equal(t, bson.M{"privacy": models.PrivacyPublic}, ListQuery(ListFilter{Privacy: "public"}))
	assert.Equal(t, bson.M{"privacy": models.PrivacyPublic}, ListQuery(ListFilter{OrgID: "org1", Privacy: "public"}))

	q := ListQuery(ListFilter{OrgID: "org1"})
	assert.Len(t, q["$or"], 2)

	q = ListQuery(ListFilter{OrgID: "org1", Privacy: "private"})
	assert.Equal(t, bson.M{"privacy": "private", "orgID": "org1"}, q)

	assert.Nil(t, ListQuery(ListFilter{Privacy: "private"}))
	assert.Nil(t, ListQuery(ListFilter{Privacy: "campus"}))
}

func TestListPrivateWithoutOrg(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("matches nothing without a query", func(mt *mtest.T) {
		svc := &Service{Colls: mt.Coll}

		out, total, err := svc.List(context.Background(), ListFilter{Privacy: "private", Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Zero(t, total)
		assert.Empty(t, mt.GetAllStartedEvents())
	})
}
