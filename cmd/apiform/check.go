package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	config "github.com/hanpama/apiform/internal/config"
	logging "github.com/hanpama/apiform/internal/logging"
	schema "github.com/hanpama/apiform/internal/schema"
	sdl "github.com/hanpama/apiform/internal/sdl"
)

func newCheckCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "check [schema.graphql...]",
		Short: "Validate SDL files and print the resulting schema",
		Long: `check loads the given SDL files, reports every schema violation and prints
the schema as SDL. Without files it checks the built-in API.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := checkSchema(args)
			var serr *schema.SchemaError
			if errors.As(err, &serr) {
				for _, v := range serr.Violations {
					fmt.Fprintln(cmd.ErrOrStderr(), v.String())
				}
				return fmt.Errorf("schema has %d violation(s)", len(serr.Violations))
			}
			if err != nil {
				return err
			}
			rendered := schema.Render(sch)
			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), rendered)
				return err
			}
			return os.WriteFile(out, []byte(rendered), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the schema to a file instead of stdout")
	return cmd
}

func checkSchema(files []string) (*schema.Schema, error) {
	if len(files) > 0 {
		doc, err := sdl.ParseFiles(files...)
		if err != nil {
			return nil, err
		}
		return doc.Registry().Build()
	}
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	s, err := buildHandler(cfg, logging.NewNop(), nil)
	if err != nil {
		return nil, err
	}
	return s.Schema(), nil
}
