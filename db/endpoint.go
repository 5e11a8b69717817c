package db

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	sparqlResultsJSON = "application/sparql-results+json"
	formContentType   = "application/x-www-form-urlencoded; charset=UTF-8"
	maxErrorBody      = 2048

	opQuery  = "query"
	opUpdate = "update"
)

// SPARQLResult represents a SPARQL query result in JSON format.
// It follows the W3C SPARQL 1.1 Query Results JSON Format specification.
type SPARQLResult struct {
	Head    SPARQLHead     `json:"head"`
	Results SPARQLBindings `json:"results"`
}

// SPARQLHead contains the variable names used in the query.
type SPARQLHead struct {
	Vars []string `json:"vars"`
}

// SPARQLBindings contains the result rows, each mapping a variable name to its value.
type SPARQLBindings struct {
	Bindings []map[string]SPARQLValue `json:"bindings"`
}

// SPARQLValue represents a single value in a SPARQL query result.
// It includes the value type (uri, literal, bnode), the value itself,
// and the optional language tag or datatype for literals.
type SPARQLValue struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Len returns the number of bindings.
func (r *SPARQLResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Results.Bindings)
}

// SPARQLEndpoint talks to a SPARQL 1.1 protocol endpoint that exposes separate
// query and update URLs (4store, Fuseki and RDF4J all do).
type SPARQLEndpoint struct {
	QueryURL   string
	UpdateURL  string
	Username   string
	Password   string
	HTTPClient *http.Client
}

// NewSPARQLEndpoint creates an endpoint client. Both URLs are required and must
// be absolute http(s) URLs.
//
// Example:
//
//	ep, err := NewSPARQLEndpoint("http://localhost:9000/sparql/", "http://localhost:9000/update/", 30*time.Second)
func NewSPARQLEndpoint(queryURL, updateURL string, timeout time.Duration) (*SPARQLEndpoint, error) {
	if err := checkEndpointURL("query", queryURL); err != nil {
		return nil, err
	}
	if err := checkEndpointURL("update", updateURL); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SPARQLEndpoint{
		QueryURL:   queryURL,
		UpdateURL:  updateURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}, nil
}

func checkEndpointURL(name, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("sparql %s url is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid sparql %s url %q: %w", name, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid sparql %s url %q: expected absolute http(s) url", name, raw)
	}
	return nil
}

// ExecuteQuery sends a SELECT statement and decodes the JSON results.
// A successful response with an empty body yields an empty result.
func (e *SPARQLEndpoint) ExecuteQuery(ctx context.Context, query string) (result *SPARQLResult, err error) {
	start := time.Now()
	defer func() { observe(opQuery, start, err) }()

	body, err := e.post(ctx, opQuery, e.QueryURL, "query", query)
	if err != nil {
		return nil, err
	}

	result = &SPARQLResult{}
	if len(strings.TrimSpace(string(body))) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("error decoding sparql results: %w", err)
	}
	return result, nil
}

// ExecuteUpdate sends an INSERT DATA or DELETE DATA statement. Any response
// body is discarded.
func (e *SPARQLEndpoint) ExecuteUpdate(ctx context.Context, update string) (err error) {
	start := time.Now()
	defer func() { observe(opUpdate, start, err) }()

	_, err = e.post(ctx, opUpdate, e.UpdateURL, "update", update)
	return err
}

func (e *SPARQLEndpoint) post(ctx context.Context, op, endpoint, field, text string) ([]byte, error) {
	data := url.Values{}
	data.Set(field, text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if e.Username != "" || e.Password != "" {
		req.SetBasicAuth(e.Username, e.Password)
	}
	req.Header.Set("Content-Type", formContentType)
	req.Header.Set("Accept", sparqlResultsJSON)

	client := e.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &EndpointError{Op: op, Err: fmt.Errorf("%w: %v", ErrEndpointUnreachable, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &EndpointError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %v", ErrEndpointUnreachable, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &EndpointError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(msg),
			Err:        classifyStatus(resp.StatusCode),
		}
	}
	return body, nil
}
