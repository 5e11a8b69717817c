package sparql

import (
	"context"
	"fmt"
	"strings"

	"skmf.evalgo.org/common"
	"skmf.evalgo.org/db"
	"skmf.evalgo.org/rdf"
)

// Executor sends rendered statements to a store. db.SPARQLEndpoint implements it.
type Executor interface {
	ExecuteQuery(ctx context.Context, query string) (*db.SPARQLResult, error)
	ExecuteUpdate(ctx context.Context, update string) error
}

// UpdateError reports a multi-graph update that stopped part way.
// Applied lists the graphs whose statement succeeded before Failed was attempted.
type UpdateError struct {
	Action  Action
	Applied []string
	Failed  string
	Err     error
}

func (e *UpdateError) Error() string {
	applied := "none"
	if len(e.Applied) > 0 {
		applied = fmt.Sprintf("%q", strings.Join(e.Applied, ","))
	}
	return fmt.Sprintf("%s DATA failed for graph %q (applied: %s): %v", e.Action, e.Failed, applied, e.Err)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// Client binds a formatter to an executor.
type Client struct {
	formatter *Formatter
	executor  Executor
	logger    *common.ContextLogger
}

// NewClient creates a client.
func NewClient(formatter *Formatter, executor Executor) *Client {
	return &Client{
		formatter: formatter,
		executor:  executor,
		logger:    common.NewContextLogger(common.Logger, map[string]interface{}{"component": "sparql"}),
	}
}

// Formatter returns the formatter statements are rendered with.
func (c *Client) Formatter() *Formatter {
	return c.formatter
}

// Namespace returns the base namespace graphs and identifiers are derived from.
func (c *Client) Namespace() string {
	return c.formatter.Namespace
}

// Select renders and runs a SELECT DISTINCT statement.
func (c *Client) Select(ctx context.Context, graphs, labels []string, pattern *rdf.Pattern, optionals []*rdf.Pattern) (*db.SPARQLResult, error) {
	query, err := c.formatter.FormatSelect(graphs, labels, pattern, optionals)
	if err != nil {
		return nil, err
	}

	log := c.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"operation": "select",
		"graphs":    len(graphs),
	})
	done := common.LogDuration(log, "select")
	result, err := c.executor.ExecuteQuery(ctx, query)
	if err != nil {
		log.WithError(err).Warn("SPARQL select failed")
		return nil, err
	}
	done()
	return result, nil
}

// Describe returns every (subject, ?p, ?o) statement visible in graphs.
func (c *Client) Describe(ctx context.Context, subject rdf.Term, graphs []string) (*db.SPARQLResult, error) {
	pattern := rdf.NewPattern()
	if _, err := pattern.AddTriple(subject, rdf.Placeholder("p"), rdf.Placeholder("o")); err != nil {
		return nil, err
	}
	return c.Select(ctx, graphs, []string{"p", "o"}, pattern, nil)
}

// Insert writes pattern into each graph with one INSERT DATA statement per graph.
func (c *Client) Insert(ctx context.Context, graphs []string, pattern *rdf.Pattern) error {
	return c.update(ctx, Insert, graphs, pattern)
}

// Delete removes pattern from each graph with one DELETE DATA statement per graph.
func (c *Client) Delete(ctx context.Context, graphs []string, pattern *rdf.Pattern) error {
	return c.update(ctx, Delete, graphs, pattern)
}

// update renders every statement before sending any, so a malformed pattern
// never reaches the store. Graphs are processed in sorted order and the first
// failure stops the fan-out.
func (c *Client) update(ctx context.Context, action Action, graphs []string, pattern *rdf.Pattern) error {
	set := make(map[string]struct{}, len(graphs))
	for _, g := range graphs {
		set[g] = struct{}{}
	}
	ordered := SortedGraphs(set)

	statements := make([]string, 0, len(ordered))
	for _, g := range ordered {
		stmt, err := c.formatter.FormatUpdate(action, g, pattern)
		if err != nil {
			return err
		}
		statements = append(statements, stmt)
	}

	operation := strings.ToLower(action.String())
	log := c.logger.WithContext(ctx).WithField("triples", pattern.Len())

	applied := make([]string, 0, len(ordered))
	for i, stmt := range statements {
		graphLog := log.WithField("graph", ordered[i])
		done := common.LogDuration(graphLog, operation)
		if err := c.executor.ExecuteUpdate(ctx, stmt); err != nil {
			graphLog.WithField("operation", operation).WithError(err).Error("SPARQL update failed")
			return &UpdateError{Action: action, Applied: applied, Failed: ordered[i], Err: err}
		}
		done()
		applied = append(applied, ordered[i])
	}
	return nil
}
