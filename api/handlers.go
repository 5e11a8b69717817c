package api

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"skmf.evalgo.org/auth"
	"skmf.evalgo.org/common"
	"skmf.evalgo.org/db"
	"skmf.evalgo.org/rdf"
	"skmf.evalgo.org/resource"
	"skmf.evalgo.org/sparql"
)

// MIMENQuads is the content type of subject exports.
const MIMENQuads = "application/n-quads"

// Handlers serves the HTTP API.
type Handlers struct {
	Auth      *auth.Service
	Store     resource.Store
	Formatter *sparql.Formatter
}

// NewHandlers wires the API to the auth service and the SPARQL client.
func NewHandlers(authService *auth.Service, client *sparql.Client) *Handlers {
	return &Handlers{
		Auth:      authService,
		Store:     client,
		Formatter: client.Formatter(),
	}
}

func logger(c echo.Context) *common.ContextLogger {
	return common.ServiceLogger("api").WithContext(c.Request().Context())
}

func bindJSON(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	return nil
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
}

// Login authenticates the caller and returns a bearer token.
func (h *Handlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	result, err := h.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Username:  result.User.Username,
		Name:      result.User.Name(),
	})
}

// Logout revokes the token the request was made with.
func (h *Handlers) Logout(c echo.Context) error {
	claims, _ := GetClaims(c)
	if err := h.Auth.Logout(c.Request().Context(), claims); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UserResponse describes an account without its password hash.
type UserResponse struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
}

// Me returns the authenticated account.
func (h *Handlers) Me(c echo.Context) error {
	claims, _ := GetClaims(c)
	user, err := resource.LoadUser(c.Request().Context(), h.Store, claims.Username)
	if err != nil {
		return httpError(err)
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusNotFound, "account no longer exists")
	}
	return c.JSON(http.StatusOK, UserResponse{
		Username: user.Username,
		Name:     user.Name(),
		Active:   user.IsActive(),
	})
}

// PasswordRequest is the body of POST /api/me/password.
type PasswordRequest struct {
	Current string `json:"current"`
	New     string `json:"new"`
}

// ChangePassword replaces the caller's password.
func (h *Handlers) ChangePassword(c echo.Context) error {
	var req PasswordRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	claims, _ := GetClaims(c)
	if err := h.Auth.ChangePassword(c.Request().Context(), claims.Username, req.Current, req.New); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateUserRequest is the body of POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// CreateUser registers a new account.
func (h *Handlers) CreateUser(c echo.Context) error {
	var req CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	user, err := h.Auth.Register(c.Request().Context(), req.Username, req.Password, req.Name)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, UserResponse{
		Username: user.Username,
		Name:     user.Name(),
		Active:   user.IsActive(),
	})
}

// ResourcesResponse lists resources of one category.
type ResourcesResponse struct {
	Category  string                   `json:"category"`
	Resources []resource.ResourceEntry `json:"resources"`
	Count     int                      `json:"count"`
}

func categoryParam(raw string) (rdf.Term, error) {
	if raw == "" {
		return resource.CategoryResource, nil
	}
	return rdf.ParseTerm(raw)
}

// ListResources returns every resource typed with the category parameter.
func (h *Handlers) ListResources(c echo.Context) error {
	category, err := categoryParam(c.QueryParam("category"))
	if err != nil {
		return httpError(err)
	}

	q := resource.NewQuery(h.Store, c.QueryParams()["graph"]...)
	entries, err := q.GetResources(c.Request().Context(), category)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, ResourcesResponse{
		Category:  category.Value,
		Resources: entries,
		Count:     len(entries),
	})
}

// CreateResourceRequest is the body of POST /api/resources.
type CreateResourceRequest struct {
	Category    string `json:"category"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Lang        string `json:"lang"`
}

// SubjectResponse describes a loaded subject.
type SubjectResponse struct {
	ID         rdf.Term             `json:"id"`
	Graphs     []string             `json:"graphs"`
	Predicates []rdf.PredicateEntry `json:"predicates"`
}

func subjectResponse(s *resource.Subject) SubjectResponse {
	return SubjectResponse{
		ID:         s.ID,
		Graphs:     s.GraphList(),
		Predicates: s.SortedPredicates(),
	}
}

// CreateResource adds a labeled resource to the default graph.
func (h *Handlers) CreateResource(c echo.Context) error {
	var req CreateResourceRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	category, err := categoryParam(req.Category)
	if err != nil {
		return httpError(err)
	}
	if strings.TrimSpace(req.Label) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "label is required")
	}

	q := resource.NewQuery(h.Store)
	subject, err := q.AddResource(c.Request().Context(), category, req.Label, req.Description, req.Lang)
	if err != nil {
		return httpError(err)
	}

	logger(c).WithField("resource", subject.ID.Value).Info("resource created")
	return c.JSON(http.StatusCreated, subjectResponse(subject))
}

// EntriesRequest is the body of POST /api/entries.
type EntriesRequest struct {
	Graphs  []string         `json:"graphs"`
	Entries []resource.Entry `json:"entries"`
}

// EntriesResponse carries the raw bindings of a user-built query.
type EntriesResponse struct {
	Results []map[string]db.SPARQLValue `json:"results"`
	Count   int                         `json:"count"`
}

// FindEntries runs a query assembled from caller supplied triples.
func (h *Handlers) FindEntries(c echo.Context) error {
	var req EntriesRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if len(req.Entries) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "at least one entry is required")
	}

	q := resource.NewQuery(h.Store, req.Graphs...)
	results, err := q.GetEntries(c.Request().Context(), req.Entries)
	if err != nil {
		return httpError(err)
	}
	if results == nil {
		results = []map[string]db.SPARQLValue{}
	}
	return c.JSON(http.StatusOK, EntriesResponse{Results: results, Count: len(results)})
}

func (h *Handlers) loadSubject(c echo.Context) (*resource.Subject, error) {
	raw := c.QueryParam("id")
	if raw == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}
	id, err := rdf.ParseTerm(raw)
	if err != nil {
		return nil, httpError(err)
	}
	if id.Kind == rdf.KindLiteral || id.Kind == rdf.KindPlaceholder {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "id must be an IRI or prefixed name")
	}

	subject, err := resource.LoadSubject(c.Request().Context(), h.Store, id, c.QueryParams()["graph"])
	if err != nil {
		return nil, httpError(err)
	}
	return subject, nil
}

// GetSubject returns the statements known about one subject.
func (h *Handlers) GetSubject(c echo.Context) error {
	subject, err := h.loadSubject(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subjectResponse(subject))
}

// ExportSubject returns one subject as N-Quads. The quads are labeled with
// the first named graph requested, or the default graph.
func (h *Handlers) ExportSubject(c echo.Context) error {
	subject, err := h.loadSubject(c)
	if err != nil {
		return err
	}

	graph := resource.DefaultGraph
	if graphs := c.QueryParams()["graph"]; len(graphs) > 0 {
		graph = graphs[0]
	}

	var buf bytes.Buffer
	if _, err := resource.WriteNQuads(&buf, subject, h.Formatter.Prefixes, h.Formatter.GraphURI(graph)); err != nil {
		return httpError(err)
	}
	return c.Blob(http.StatusOK, MIMENQuads, buf.Bytes())
}
