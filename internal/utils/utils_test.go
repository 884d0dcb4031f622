package utils_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductor/internal/apperr"
	"conductor/internal/utils"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSONEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	utils.JSON(rec, http.StatusCreated, map[string]any{"bookID": "chem-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["err"])
	assert.Equal(t, "chem-1", body["bookID"])

	rec = httptest.NewRecorder()
	utils.JSON(rec, http.StatusOK, []string{"a"})
	assert.Equal(t, []any{"a"}, decode(t, rec)["data"])
}

func TestWriteErrorUsesCodeTable(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	rec := httptest.NewRecorder()
	utils.WriteError(rec, req, apperr.New(apperr.CodeCollectionCycle, ""))
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["err"])
	assert.Equal(t, apperr.CodeCollectionCycle.Message(), body["errMsg"])

	rec = httptest.NewRecorder()
	utils.WriteError(rec, req, errors.New("driver exploded"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperr.CodeInternal.Message(), decode(t, rec)["errMsg"])
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		page  int
		limit int
		fails bool
	}{
		{"", 1, utils.DefaultLimit, false},
		{"page=3&limit=25", 3, 25, false},
		{"page=0", 0, 0, true},
		{"limit=500", 0, 0, true},
		{"page=abc", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
			p, err := utils.ParsePagination(req)
			if tt.fails {
				assert.ErrorIs(t, err, &apperr.Error{Code: apperr.CodeInvalidPage})
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.limit, p.Limit)
		})
	}

	assert.EqualValues(t, 50, utils.Pagination{Page: 3, Limit: 25}.Skip())
}

func TestJWTRoundTrip(t *testing.T) {
	utils.InitJwtSecret("test-secret")

	token, err := utils.GenerateJWT("user-9", time.Minute)
	require.NoError(t, err)

	claims, err := utils.ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-9", claims.UserID)

	_, err = utils.ParseJWT(token + "x")
	assert.Error(t, err)

	expired, err := utils.GenerateJWT("user-9", -time.Minute)
	require.NoError(t, err)
	_, err = utils.ParseJWT(expired)
	assert.Error(t, err)
}
