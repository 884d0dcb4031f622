package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func serve(router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func requireErrCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	body := decodeBody(t, w)
	require.Equal(t, true, body["err"])
	require.Equal(t, code, body["errCode"])
}

func writeOK(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func countResponse(ns string, n int32) bson.D {
	if n == 0 {
		return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func findAndModify(doc bson.D) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "value", Value: doc})
}

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func bookDoc(bookID, title string) bson.D {
	return bson.D{
		{Key: "bookID", Value: bookID},
		{Key: "library", Value: "chem"},
		{Key: "coverID", Value: "101"},
		{Key: "title", Value: title},
		{Key: "location", Value: "central"},
	}
}
