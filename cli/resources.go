package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"skmf.evalgo.org/rdf"
	"skmf.evalgo.org/resource"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newResourcesCmd() *cobra.Command {
	var graphs []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resources [category]",
		Short: "list resources of a category",
		Long: `Lists every resource typed with category together with its label.
The category defaults to skmf:Resource and may be given as a prefixed
name or as <iri>.`,
		Example: `  skmf resources
  skmf resources skmf:Person --graph people`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := resource.CategoryResource
			if len(args) == 1 {
				t, err := rdf.ParseTerm(args[0])
				if err != nil {
					return err
				}
				category = t
			}

			return runApp(cmd, func(ctx context.Context, a *app) error {
				entries, err := resource.NewQuery(a.client, graphs...).GetResources(ctx, category)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, entries)
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%s\t%s\n", e.Resource, e.Label)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&graphs, "graph", nil, "named graph to search in addition to the default graph")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newAddResourceCmd() *cobra.Command {
	var category, label, description, lang string

	cmd := &cobra.Command{
		Use:   "add-resource",
		Short: "create a labeled resource",
		Long: `Creates a resource in the default graph. Its id is derived from the
label; an existing resource with the same id is left untouched.`,
		Example: `  skmf add-resource --label "Solar Panel" --description "A photovoltaic module" --lang en`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := resource.CategoryResource
			if category != "" {
				t, err := rdf.ParseTerm(category)
				if err != nil {
					return err
				}
				cat = t
			}

			return runApp(cmd, func(ctx context.Context, a *app) error {
				subject, err := resource.NewQuery(a.client).AddResource(ctx, cat, label, description, lang)
				if err != nil {
					return err
				}
				a.logger.WithField("resource", subject.ID.Value).Info("resource created")
				fmt.Fprintln(cmd.OutOrStdout(), subject.ID.Value)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "category of the resource (default skmf:Resource)")
	cmd.Flags().StringVar(&label, "label", "", "human readable label")
	cmd.Flags().StringVar(&description, "description", "", "optional description")
	cmd.Flags().StringVar(&lang, "lang", "", "language tag for label and description")
	cobra.CheckErr(cmd.MarkFlagRequired("label"))
	return cmd
}

func newQueryCmd() *cobra.Command {
	var triples, graphs []string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "run a query built from triples",
		Long: `Builds a SELECT from the given triples and prints the bindings as
JSON. Every placeholder that is not a label placeholder also gets its
rdfs:label returned as <name>_label.

Terms use the compact syntax: <iri>, prefix:name, ?var, "literal" or
"literal"@lang.`,
		Example: `  skmf query --triple '?s a skmf:Resource' --triple '?s skmf:owner skmf:admin'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(triples) == 0 {
				return fmt.Errorf("at least one --triple is required")
			}
			entries := make([]resource.Entry, 0, len(triples))
			for _, s := range triples {
				t, err := rdf.ParseTriple(s)
				if err != nil {
					return err
				}
				entries = append(entries, t)
			}

			return runApp(cmd, func(ctx context.Context, a *app) error {
				results, err := resource.NewQuery(a.client, graphs...).GetEntries(ctx, entries)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), results)
			})
		},
	}
	cmd.Flags().StringArrayVar(&triples, "triple", nil, "triple pattern \"subject predicate object\" (repeatable)")
	cmd.Flags().StringSliceVar(&graphs, "graph", nil, "named graph to query in addition to the default graph")
	return cmd
}

func newExportCmd() *cobra.Command {
	var graphs []string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "write a subject as N-Quads",
		Long: `Loads every statement about a subject and writes it as N-Quads to
stdout. The quads are labeled with the first --graph, or with the
default graph.`,
		Example: `  skmf export skmf:solarpanel > solarpanel.nq`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := rdf.ParseTerm(args[0])
			if err != nil {
				return err
			}
			if id.Kind == rdf.KindLiteral || id.Kind == rdf.KindPlaceholder {
				return fmt.Errorf("%w: subject must be an IRI or prefixed name", rdf.ErrMalformedTerm)
			}

			return runApp(cmd, func(ctx context.Context, a *app) error {
				subject, err := resource.LoadSubject(ctx, a.client, id, graphs)
				if err != nil {
					return err
				}
				graph := resource.DefaultGraph
				if len(graphs) > 0 {
					graph = graphs[0]
				}
				f := a.client.Formatter()
				_, err = resource.WriteNQuads(cmd.OutOrStdout(), subject, f.Prefixes, f.GraphURI(graph))
				return err
			})
		},
	}
	cmd.Flags().StringSliceVar(&graphs, "graph", nil, "named graph to read from")
	return cmd
}
