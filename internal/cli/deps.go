package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gogpu/wgslcore"
	"github.com/gogpu/wgslcore/ast"
	"github.com/gogpu/wgslcore/diag"
	"github.com/gogpu/wgslcore/resolver"
)

// NewDepsCommand creates the deps command.
func NewDepsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deps <file.wgsl>",
		Short: "Print the dependency order of module-scope declarations",
		Long: `Print the module-scope declarations of a shader in dependency order,
followed by the local declarations that shadow module-scope ones.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(args[0], cmd)
		},
	}
}

func runDeps(path string, cmd *cobra.Command) error {
	files, err := readSources([]string{path})
	if err != nil {
		return err
	}
	f := files[0]
	mod, diags := wgslcore.Parse(f.source)
	if diags.ContainsErrors() {
		fmt.Fprint(cmd.ErrOrStderr(), diags.WithSource(f.name).FormatAll(f.source))
		return NewExitError(ExitFailure, "parse failed")
	}
	graph, diags := resolver.Build(mod)
	if diags.ContainsErrors() {
		fmt.Fprint(cmd.ErrOrStderr(), diags.WithSource(f.name).FormatAll(f.source))
		return NewExitError(ExitFailure, "dependency analysis failed")
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "ordered globals:")
	for i, d := range graph.OrderedGlobals {
		fmt.Fprintf(w, "  %d. %s\n", i+1, describe(d))
	}

	type shadow struct{ local, outer ast.Node }
	var shadows []shadow
	for local, outer := range graph.Shadows {
		shadows = append(shadows, shadow{local, outer})
	}
	slices.SortFunc(shadows, func(a, b shadow) int {
		ra, rb := a.local.Range().Start, b.local.Range().Start
		return cmp.Or(cmp.Compare(ra.Line, rb.Line), cmp.Compare(ra.Column, rb.Column))
	})
	if len(shadows) > 0 {
		fmt.Fprintln(w, "shadows:")
	}
	for _, s := range shadows {
		fmt.Fprintf(w, "  %s shadows %s\n", describe(s.local), describe(s.outer))
	}
	return nil
}

// describe renders a declaration as "<kind> <name> (line:col)".
func describe(n ast.Node) string {
	kind := ast.KindOf(n)
	switch d := n.(type) {
	case *ast.Enable:
		return kind + " " + strings.Join(d.Extensions, ", ")
	case *ast.Requires:
		return kind + " " + strings.Join(d.Features, ", ")
	}
	var name *ast.Ident
	switch d := n.(type) {
	case ast.Variable:
		name = d.VarName()
	case ast.Decl:
		name = ast.DeclName(d)
	}
	if name == nil {
		return fmt.Sprintf("%s (%s)", kind, position(n.Range()))
	}
	return fmt.Sprintf("%s %s (%s)", kind, name.Name, position(name.Range()))
}

func position(r diag.Range) string {
	return fmt.Sprintf("%d:%d", r.Start.Line, r.Start.Column)
}
