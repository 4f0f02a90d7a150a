package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formstate/pkg/definition"
	"github.com/goliatone/go-formstate/pkg/form"
	"github.com/goliatone/go-formstate/pkg/prompt"
)

// deps are the collaborators commands need; tests swap the driver.
type deps struct {
	driver func() prompt.Driver
}

func newDeps() deps {
	return deps{driver: prompt.NewSurveyDriver}
}

type sourceFlags struct {
	definition string
	openapi    string
	operation  string
}

func newRootCmd(d deps) *cobra.Command {
	v := newViper()
	var cfgFile string

	root := &cobra.Command{
		Use:           "formstate",
		Short:         "Fill declarative forms from the terminal",
		Long:          titleStyle.Render("formstate") + mutedStyle.Render(" - fill declarative forms from the terminal"),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	load := func() (Config, error) {
		return loadConfig(v, cfgFile)
	}

	root.AddCommand(newFillCmd(d, v, load))
	root.AddCommand(newInspectCmd(load))
	return root
}

func addSourceFlags(cmd *cobra.Command, src *sourceFlags) {
	cmd.Flags().StringVarP(&src.definition, "definition", "d", "", "form definition file (yaml, toml or json)")
	cmd.Flags().StringVar(&src.openapi, "openapi", "", "OpenAPI document to derive the form from")
	cmd.Flags().StringVar(&src.operation, "operation", "", "operationId whose request body describes the form")
}

func newFillCmd(d deps, v *viper.Viper, load func() (Config, error)) *cobra.Command {
	var src sourceFlags
	var outPath string

	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Prompt for every field and print the submitted values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}

			def, err := loadDefinition(cmd.Context(), src)
			if err != nil {
				return err
			}
			initial, set, err := definition.Build(def)
			if err != nil {
				return err
			}

			opts := []form.Option{form.WithRules(set), form.WithLogger(logger)}
			if cfg.Sanitize {
				opts = append(opts, form.WithSanitizer(form.StrictSanitizer()))
			}
			ctrl := form.New(initial, opts...)

			session := prompt.NewSession(def, ctrl,
				prompt.WithDriver(d.driver()),
				prompt.WithLogger(logger),
				prompt.WithMaxSubmitAttempts(cfg.MaxAttempts),
			)
			values, err := session.Run(cmd.Context())
			if err != nil {
				var verr *form.ValidationError
				if errors.As(err, &verr) {
					printFieldErrors(cmd.ErrOrStderr(), verr.Fields)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}
			if err := encodeValues(out, cfg.Output, values); err != nil {
				return err
			}
			logger.Info("form submitted", "form", def.Name, "fields", len(def.Fields))
			fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("✓ ")+def.Name+" submitted")
			return nil
		},
	}
	addSourceFlags(cmd, &src)
	cmd.Flags().StringP("output", "o", "", "output format (json or yaml)")
	cmd.Flags().StringVar(&outPath, "out", "", "write values to a file instead of stdout")
	_ = v.BindPFlag("output", cmd.Flags().Lookup("output"))
	return cmd
}

func newInspectCmd(load func() (Config, error)) *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the fields, rules and initial values of a form",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := load(); err != nil {
				return err
			}
			def, err := loadDefinition(cmd.Context(), src)
			if err != nil {
				return err
			}
			initial, _, err := definition.Build(def)
			if err != nil {
				return err
			}
			printDefinition(cmd.OutOrStdout(), def, initial)
			return nil
		},
	}
	addSourceFlags(cmd, &src)
	return cmd
}

func loadDefinition(ctx context.Context, src sourceFlags) (definition.Definition, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	switch {
	case src.definition != "" && src.openapi != "":
		return definition.Definition{}, errors.New("use either --definition or --openapi, not both")
	case src.definition != "":
		return definition.Load(src.definition)
	case src.openapi != "":
		if strings.TrimSpace(src.operation) == "" {
			return definition.Definition{}, errors.New("--operation is required with --openapi")
		}
		data, err := os.ReadFile(src.openapi)
		if err != nil {
			return definition.Definition{}, fmt.Errorf("read openapi document: %w", err)
		}
		return definition.FromOpenAPI(ctx, data, src.operation)
	default:
		return definition.Definition{}, errors.New("one of --definition or --openapi is required")
	}
}

func encodeValues(w io.Writer, format string, values map[string]any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(values); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(values); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}

func printFieldErrors(w io.Writer, fields map[string]string) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, errorStyle.Render("Form has errors:"))
	for _, name := range names {
		fmt.Fprintln(w, fieldStyle.Render(name+": "+fields[name]))
	}
}

func printDefinition(w io.Writer, def definition.Definition, initial map[string]any) {
	title := def.Name
	if title == "" {
		title = "form"
	}
	fmt.Fprintln(w, titleStyle.Render(title))
	if def.Description != "" {
		fmt.Fprintln(w, mutedStyle.Render(def.Description))
	}
	for _, field := range def.Fields {
		line := fmt.Sprintf("%s (%s)", field.Name, field.EffectiveKind())
		if len(field.Rules) > 0 {
			kinds := make([]string, len(field.Rules))
			for i, rule := range field.Rules {
				kinds[i] = rule.Kind
			}
			line += " rules=" + strings.Join(kinds, ",")
		}
		if len(field.Options) > 0 {
			line += " options=" + strings.Join(field.Options, "|")
		}
		fmt.Fprintln(w, fieldStyle.Render(line))
	}
	if len(initial) > 0 {
		fmt.Fprintln(w, mutedStyle.Render("initial values:"))
		_ = encodeValues(w, "yaml", initial)
	}
}
