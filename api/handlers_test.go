package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skmf.evalgo.org/auth"
	"skmf.evalgo.org/db"
	"skmf.evalgo.org/rdf"
	"skmf.evalgo.org/resource"
	"skmf.evalgo.org/resource/resourcetest"
	"skmf.evalgo.org/sparql"
)

type testAPI struct {
	e     *echo.Echo
	store *resourcetest.MemoryStore
	auth  *auth.Service
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := resourcetest.NewMemoryStore()

	config := auth.DefaultConfig()
	config.JWTSecret = "test-secret"
	svc := auth.NewService(config, auth.NewSPARQLUserStore(store), auth.NewMemoryRevocationStore(), nil)

	_, err := svc.Register(context.Background(), "admin", "password123", "Administrator")
	require.NoError(t, err)

	e := echo.New()
	SetupRoutes(e, &Handlers{
		Auth:      svc,
		Store:     store,
		Formatter: sparql.NewFormatter(resourcetest.Namespace, nil),
	})
	return &testAPI{e: e, store: store, auth: svc}
}

func (a *testAPI) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(t *testing.T) string {
	t.Helper()
	rec := a.do(http.MethodPost, "/auth/login", "", `{"username":"admin","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "Administrator", resp.Name)
	return resp.Token
}

// TestLoginLogout tests the token lifecycle
func TestLoginLogout(t *testing.T) {
	a := newTestAPI(t)
	token := a.login(t)

	rec := a.do(http.MethodGet, "/api/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "admin", me.Username)
	assert.True(t, me.Active)

	rec = a.do(http.MethodPost, "/auth/logout", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodGet, "/api/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	t.Run("wrong password", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/auth/login", "", `{"username":"admin","password":"nope-nope"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/auth/login", "", `{"username":"admin"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no token", func(t *testing.T) {
		rec := a.do(http.MethodGet, "/api/me", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("forged token", func(t *testing.T) {
		rec := a.do(http.MethodGet, "/api/me", "not.a.jwt", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

// TestCreateResource tests resource creation and conflicts
func TestCreateResource(t *testing.T) {
	a := newTestAPI(t)
	token := a.login(t)

	body := `{"label":"Tag","description":"Something to tag with","lang":"en"}`
	rec := a.do(http.MethodPost, "/api/resources", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var subject SubjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subject))
	assert.Equal(t, rdf.URI(resourcetest.Namespace+"#tag"), subject.ID)
	assert.Equal(t, 4, a.store.Count(resource.DefaultGraph))

	rec = a.do(http.MethodPost, "/api/resources", token, body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	t.Run("label without letters", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/api/resources", token, `{"label":"!!!"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad category", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/api/resources", token, `{"category":"<broken","label":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// TestListResources tests category listing
func TestListResources(t *testing.T) {
	a := newTestAPI(t)
	token := a.login(t)

	a.store.Result = &db.SPARQLResult{
		Head: db.SPARQLHead{Vars: []string{"label", "resource"}},
		Results: db.SPARQLBindings{Bindings: []map[string]db.SPARQLValue{
			{
				"resource": {Type: "uri", Value: resourcetest.Namespace + "#tag"},
				"label":    {Type: "literal", Value: "Tag", Lang: "en"},
			},
			{
				"resource": {Type: "uri", Value: resourcetest.Namespace + "#unlabeled"},
			},
		}},
	}

	rec := a.do(http.MethodGet, "/api/resources?category=rdf:Property", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ResourcesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "Tag", resp.Resources[0].Label)
	assert.Empty(t, resp.Resources[1].Label)
	assert.Equal(t, "rdf:Property", resp.Category)

	require.NotEmpty(t, a.store.Selects)
	call := a.store.Selects[len(a.store.Selects)-1]
	assert.Equal(t, []string{"label", "resource"}, call.Labels)

	t.Run("endpoint down", func(t *testing.T) {
		a.store.Err = &db.EndpointError{Op: "query", Err: db.ErrEndpointUnreachable}
		defer func() { a.store.Err = nil }()

		rec := a.do(http.MethodGet, "/api/resources", token, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("endpoint rejects query", func(t *testing.T) {
		a.store.Err = &db.EndpointError{Op: "query", StatusCode: 400, Err: db.ErrMalformedQuery}
		defer func() { a.store.Err = nil }()

		rec := a.do(http.MethodGet, "/api/resources", token, "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

// TestFindEntries tests user-built queries
func TestFindEntries(t *testing.T) {
	a := newTestAPI(t)
	token := a.login(t)

	a.store.Result = &db.SPARQLResult{Results: db.SPARQLBindings{Bindings: []map[string]db.SPARQLValue{
		{"s": {Type: "uri", Value: resourcetest.Namespace + "#tag"}},
	}}}

	body := `{"entries":[{"subject":{"type":"label","value":"s"},"predicate":{"type":"pfx","value":"a"},"object":{"type":"pfx","value":"skmf:Resource"}}]}`
	rec := a.do(http.MethodPost, "/api/entries", token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp EntriesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)

	call := a.store.Selects[len(a.store.Selects)-1]
	assert.Equal(t, []string{"s", "s_label"}, call.Labels)
	require.Len(t, call.Optionals, 1)

	t.Run("literal subject", func(t *testing.T) {
		before := len(a.store.Selects)
		body := `{"entries":[{"subject":{"type":"literal","value":"x"},"predicate":{"type":"pfx","value":"a"},"object":{"type":"label","value":"o"}}]}`
		rec := a.do(http.MethodPost, "/api/entries", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Len(t, a.store.Selects, before, "nothing may be sent")
	})

	t.Run("no entries", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/api/entries", token, `{"entries":[]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// TestGetSubjectAndExport tests subject loading and N-Quads export
func TestGetSubjectAndExport(t *testing.T) {
	a := newTestAPI(t)
	token := a.login(t)

	rec := a.do(http.MethodPost, "/api/resources", token, `{"label":"Tag","lang":"en"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodGet, "/api/subjects?id=skmf:tag", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var subject SubjectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &subject))
	assert.Equal(t, []string{""}, subject.Graphs)
	assert.Len(t, subject.Predicates, 2)

	rec = a.do(http.MethodGet, "/api/subjects/export?id=skmf:tag", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, MIMENQuads, rec.Header().Get(echo.HeaderContentType))
	out := rec.Body.String()
	assert.Contains(t, out, fmt.Sprintf("<%s#tag>", resourcetest.Namespace))
	assert.Contains(t, out, `"Tag"@en`)
	assert.Equal(t, 3, strings.Count(out, "\n"))

	t.Run("missing id", func(t *testing.T) {
		rec := a.do(http.MethodGet, "/api/subjects", token, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("placeholder id", func(t *testing.T) {
		rec := a.do(http.MethodGet, "/api/subjects?id=%3Fs", token, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

// TestCreateUser tests account registration over the API
func TestCreateUser(t *testing.T) {
	a := newTestAPI(t)
	token := a.login(t)

	rec := a.do(http.MethodPost, "/api/users", token, `{"username":"alice","password":"password456","name":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/api/users", token, `{"username":"alice","password":"password456"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/api/users", token, `{"username":"bob","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/auth/login", "", `{"username":"alice","password":"password456"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestChangePassword tests the password endpoint
func TestChangePassword(t *testing.T) {
	a := newTestAPI(t)
	token := a.login(t)

	rec := a.do(http.MethodPost, "/api/me/password", token, `{"current":"wrong-one","new":"newpassword1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/api/me/password", token, `{"current":"password123","new":"newpassword1"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodPost, "/auth/login", "", `{"username":"admin","password":"newpassword1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestStatusFor tests the error to status mapping
func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{rdf.ErrMalformedTerm, http.StatusBadRequest},
		{&resource.EntryError{Index: 0, Position: "subject", Err: rdf.ErrMalformedPattern}, http.StatusBadRequest},
		{fmt.Errorf("x: %w", resource.ErrResourceExists), http.StatusConflict},
		{auth.ErrAccountDisabled, http.StatusForbidden},
		{resource.ErrUnsupportedOperation, http.StatusNotImplemented},
		{&sparql.UpdateError{Err: &db.EndpointError{Err: db.ErrEndpointInternal}}, http.StatusBadGateway},
		{&db.EndpointError{Err: db.ErrEndpointUnreachable}, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: %w", auth.ErrRevocationCheck, errors.New("redis down")), http.StatusServiceUnavailable},
		{errors.New("surprise"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, statusFor(tt.err), tt.err.Error())
	}

	he := httpError(db.ErrEndpointInternal)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), he.Message)
}

// TestClaimsHelpers tests the context helpers
func TestClaimsHelpers(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, ok := GetClaims(c)
	assert.False(t, ok)

	err := RequireClaims()(func(echo.Context) error { return nil })(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.Code)

	SetClaims(c, &auth.Claims{Username: "admin"})
	claims, ok := GetClaims(c)
	require.True(t, ok)
	assert.Equal(t, "admin", claims.Username)
}
