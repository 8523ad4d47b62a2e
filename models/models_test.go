package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogem/content-api/jsondoc"
)

func strPtr(s string) *string { return &s }

func TestDefinitionFormValidation(t *testing.T) {
	valid := DefinitionForm{
		Name:    "Menu",
		Path:    "/menu/",
		Method:  "get",
		Content: json.RawMessage(`{"data":[1,2]}`),
	}
	doc, errs := valid.Validate()
	require.False(t, errs.HasErrors(), errs)
	assert.JSONEq(t, `{"data":[1,2]}`, jsondoc.Canonical(doc))

	def := valid.Definition(doc)
	assert.Equal(t, "/menu", def.Path)
	assert.Equal(t, "GET", def.Method)
	assert.Equal(t, StatusActive, def.Status)

	tests := []struct {
		name  string
		form  DefinitionForm
		field string
	}{
		{"missing name", DefinitionForm{Path: "/a", Content: json.RawMessage(`1`)}, "name"},
		{"relative path", DefinitionForm{Name: "a", Path: "a", Content: json.RawMessage(`1`)}, "path"},
		{"missing path", DefinitionForm{Name: "a", Content: json.RawMessage(`1`)}, "path"},
		{"bad method", DefinitionForm{Name: "a", Path: "/a", Method: "TRACE", Content: json.RawMessage(`1`)}, "method"},
		{"bad status", DefinitionForm{Name: "a", Path: "/a", Status: "draft", Content: json.RawMessage(`1`)}, "status"},
		{"missing content", DefinitionForm{Name: "a", Path: "/a"}, "content"},
		{"content text not JSON", DefinitionForm{Name: "a", Path: "/a", ResponseContent: strPtr("{nope")}, "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := tt.form.Validate()
			require.True(t, errs.HasErrors())
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestDefinitionFormResponseContentText(t *testing.T) {
	form := DefinitionForm{Name: "a", Path: "/a", ResponseContent: strPtr(`[{"id":1}]`)}

	doc, errs := form.Validate()

	require.False(t, errs.HasErrors())
	assert.JSONEq(t, `[{"id":1}]`, jsondoc.Canonical(doc))
}

func TestDefinitionUpdate(t *testing.T) {
	empty := DefinitionUpdate{}
	_, _, errs := empty.Validate()
	assert.True(t, errs.HasErrors())

	def := &Definition{Name: "old", Path: "/old", Method: "GET", Status: StatusActive, Content: "x"}
	upd := DefinitionUpdate{
		Path:    strPtr("/new/"),
		Method:  strPtr("post"),
		Status:  strPtr(StatusInactive),
		Content: json.RawMessage(`{"a":1}`),
	}
	content, hasContent, errs := upd.Validate()
	require.False(t, errs.HasErrors(), errs)
	require.True(t, hasContent)

	upd.ApplyTo(def, content, hasContent)
	assert.Equal(t, "old", def.Name)
	assert.Equal(t, "/new", def.Path)
	assert.Equal(t, "POST", def.Method)
	assert.False(t, def.Active())
	assert.JSONEq(t, `{"a":1}`, jsondoc.Canonical(def.Content))

	bad := DefinitionUpdate{Path: strPtr("nope"), Method: strPtr("TRACE")}
	_, _, errs = bad.Validate()
	assert.Len(t, errs, 2)
}

func TestValidationErrorsAsError(t *testing.T) {
	var errs ValidationErrors
	assert.NoError(t, errs.Err())

	errs.add("path", "must start with /")
	err := errs.Err()
	require.Error(t, err)

	var target ValidationErrors
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "validation failed: path: must start with /", err.Error())
}

func TestContentPatchMutationRequest(t *testing.T) {
	var patch ContentPatch
	require.NoError(t, json.Unmarshal([]byte(`{"operation":"UPDATE","path":"a.b","value":null}`), &patch))

	req, err := patch.MutationRequest()
	require.NoError(t, err)
	assert.Equal(t, jsondoc.OpUpdate, req.Operation)
	assert.True(t, req.HasValue, "explicit null is a value")
	assert.Nil(t, req.Value)

	patch = ContentPatch{Operation: "remove", Path: "a"}
	req, err = patch.MutationRequest()
	require.NoError(t, err)
	assert.False(t, req.HasValue)

	patch = ContentPatch{Operation: "add", Path: "a", Value: json.RawMessage(`{bad`)}
	_, err = patch.MutationRequest()
	var verr ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestPagingAndTotalPages(t *testing.T) {
	p := Paging{}
	p.Normalize()
	assert.Equal(t, Paging{Page: 1, Limit: DefaultPageLimit}, p)
	assert.Empty(t, p.Validate())
	assert.Equal(t, 0, p.Offset())

	assert.Len(t, Paging{Page: 0, Limit: 101}.Validate(), 2)
	assert.Equal(t, 40, Paging{Page: 3, Limit: 20}.Offset())

	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 2, TotalPages(11, 10))
}

func TestAuditRecordView(t *testing.T) {
	rec := AuditRecord{
		ID:             7,
		DefinitionID:   3,
		RequestHeaders: `{"x-api-token":"***"}`,
		RequestBody:    "",
		ResponseBody:   "not json",
	}

	view := rec.View()

	assert.Equal(t, int64(3), view.APIID)
	assert.Equal(t, map[string]any{"x-api-token": "***"}, view.RequestHeaders)
	assert.Nil(t, view.RequestBody)
	assert.Equal(t, "not json", view.ResponseBody)
}
