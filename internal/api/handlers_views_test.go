package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestViewHandler_HandleGetView(t *testing.T) {
	env := newTestEnv(t)
	id := env.loadPeople(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
		check      func(t *testing.T, out map[string]any)
	}{
		{
			name:       "field descriptions",
			path:       "/views/field-descriptions",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, []any{"Field Name", "Field Type"}, out["columns"])
				assert.Len(t, out["rows"], 3)
			},
		},
		{
			name:       "summary statistics",
			path:       "/views/summary-statistics",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, []any{"name", "age", "city"}, out["columns"])
				assert.Contains(t, out["index"], "mean")
				assert.Contains(t, out["index"], "unique")
			},
		},
		{
			name:       "value counts",
			path:       "/views/value-counts?field=city",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, out map[string]any) {
				assert.Equal(t, []any{"Value", "Count"}, out["columns"])
				assert.Equal(t, []any{
					[]any{"Oslo", float64(2)},
					[]any{"Rome", float64(1)},
				}, out["rows"])
			},
		},
		{
			name:       "value counts without field",
			path:       "/views/value-counts",
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeValidation,
		},
		{
			name:       "value counts on numeric field",
			path:       "/views/value-counts?field=age",
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidFieldSelection,
		},
		{
			name:       "value counts on unknown field",
			path:       "/views/value-counts?field=nope",
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeInvalidFieldSelection,
		},
		{
			name:       "unknown view",
			path:       "/views/histogram",
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/api/sessions/"+id+tt.path, nil, "")
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			out := decodeBody(t, rec)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, out["code"])
				return
			}
			tt.check(t, out)
		})
	}
}

func TestViewHandler_NoTable(t *testing.T) {
	env := newTestEnv(t)
	id := env.newSession(t)

	for _, path := range []string{"/views/dimensions", "/preview", "/fields/text", "/explorer/arrow"} {
		t.Run(path, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/api/sessions/"+id+path, nil, "")
			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Equal(t, CodeConflict, decodeBody(t, rec)["code"])
		})
	}
}

func TestViewHandler_HandlePreview(t *testing.T) {
	env := newTestEnv(t)
	id := env.loadPeople(t)

	t.Run("first page", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/sessions/"+id+"/preview?pageSize=2", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		out := decodeBody(t, rec)
		assert.EqualValues(t, 1, out["page"])
		assert.EqualValues(t, 3, out["totalRows"])
		assert.Equal(t, []any{"name", "age", "city"}, out["columns"])
		assert.Equal(t, []any{"object", "float64", "object"}, out["types"])
		assert.Equal(t, []any{"ann", float64(31), "Oslo"}, out["rows"].([]any)[0])
		assert.Len(t, out["rows"], 2)
	})

	t.Run("second page", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/sessions/"+id+"/preview?page=2&pageSize=2", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		rows := decodeBody(t, rec)["rows"].([]any)
		require.Len(t, rows, 1)
		assert.Equal(t, []any{"cid", nil, "Oslo"}, rows[0])
	})

	t.Run("bad page", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/api/sessions/"+id+"/preview?page=0", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestViewHandler_HandlePreviewMsgpack(t *testing.T) {
	env := newTestEnv(t)
	id := env.loadPeople(t)

	rec := env.do(http.MethodGet, "/api/sessions/"+id+"/preview/msgpack", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

	var out map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &out))
	assert.EqualValues(t, 3, out["totalRows"])
	assert.Len(t, out["rows"], 3)
}

func TestViewHandler_HandleGetTextFields(t *testing.T) {
	env := newTestEnv(t)
	id := env.loadPeople(t)

	rec := env.do(http.MethodGet, "/api/sessions/"+id+"/fields/text", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"name", "city"}, decodeBody(t, rec)["fields"])
}
