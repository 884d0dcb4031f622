package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"conductor/internal/handlers"
)

func TestRegister_WritesNeedToken(t *testing.T) {
	r := mux.NewRouter()
	(&handlers.Handlers{}).Register(r)

	cases := []struct {
		method, path string
	}{
		{http.MethodPost, "/commons/book"},
		{http.MethodDelete, "/commons/book/chem-101"},
		{http.MethodPost, "/collections"},
		{http.MethodPut, "/collections/c1/sync"},
		{http.MethodPost, "/peerreview/rubric"},
		{http.MethodPost, "/project/p1/ai-metadata-batch"},
		{http.MethodGet, "/commons/adoptionreports"},
		{http.MethodGet, "/analytics/courses"},
		{http.MethodPut, "/c-ids"},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := serve(r, tc.method, tc.path, nil)
			requireErrCode(t, w, http.StatusUnauthorized, "err4")
		})
	}
}

func TestRegister_Healthz(t *testing.T) {
	r := mux.NewRouter()
	(&handlers.Handlers{}).Register(r)

	w := serve(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}
