package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/neogm/internal/cli/ui"
	"github.com/conduit-lang/neogm/internal/ogm/schema"
)

// NewSchemaCommand creates the schema command
func NewSchemaCommand(flags *globalFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "schema [label]",
		Short: "Show the fields of loaded node schemas",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd, flags)
			if err != nil {
				return err
			}

			labels := env.registry.List()
			if len(args) == 1 && !all {
				if !env.registry.Exists(args[0]) {
					fmt.Fprint(cmd.ErrOrStderr(), ui.LabelNotFoundError(args[0], labels, env.noColor))
					return renderedError{fmt.Errorf("unknown label %q", args[0])}
				}
				labels = []string{args[0]}
			}

			w := cmd.OutOrStdout()
			for i, label := range labels {
				if i > 0 {
					fmt.Fprintln(w)
				}
				s, _ := env.registry.Get(label)
				ui.Header(w, label, env.noColor)
				table := ui.NewTable(w, env.noColor, "FIELD", "TYPE", "DETAILS")
				for _, f := range s.Fields() {
					typ, details := describeField(f)
					table.AddRow(f.Name, typ, details)
				}
				table.Render()
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Show every loaded schema")
	return cmd
}

func describeField(f schema.Field) (string, string) {
	switch a := f.Annotation.(type) {
	case schema.Identity:
		return "id", ""
	case schema.Scalar:
		var details []string
		if a.Optional {
			details = append(details, "optional")
		}
		if a.Stringify {
			details = append(details, "stringify")
		}
		return a.Kind.String(), strings.Join(details, ", ")
	case schema.Relationship:
		target := "?"
		if t := a.ResolveTarget(); t != nil {
			target = t.Label
		}
		mode := "lazy"
		if a.Eager {
			mode = "eager"
		}
		return "relationship", fmt.Sprintf("%s%s %s", a, target, mode)
	default:
		return "unknown", ""
	}
}
