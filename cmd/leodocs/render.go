package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leoforge/go-leodocs/pkg/leodocs"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type renderOptions struct {
	modality string
	data     string
	out      string
	prefix   string
	month    string
	year     int
}

func newRenderCmd(a *app) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render [template]",
		Short: "Render a template with data",
		Long: `Render a template from the template directory with a JSON or YAML data file.

The template is named as an argument or chosen by --modality through the
routes in the config file. Without --out the document is written to the
working directory under a name built from --prefix, --month and --year.

Examples:
  leodocs render minutes.docx --data may.json --prefix "Leo Club Minutes" --month 5 --year 2026
  leodocs render --modality virtual --data may.yaml --out minutes.docx
  cat may.json | leodocs render minutes.docx --data - --out - > minutes.docx`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRender(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.modality, "modality", "m", "", "route the template by meeting modality")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "JSON or YAML data file, - for stdin")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file, - for stdout")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "file name prefix")
	cmd.Flags().StringVar(&opts.month, "month", "", "month for the file name, as a number or a name")
	cmd.Flags().IntVar(&opts.year, "year", 0, "year for the file name")
	return cmd
}

func (a *app) runRender(cmd *cobra.Command, args []string, opts *renderOptions) error {
	req := leodocs.Request{
		Variant: opts.modality,
		Filename: leodocs.FilenameSpec{
			Prefix: opts.prefix,
			Month:  opts.month,
			Year:   opts.year,
		},
	}
	if len(args) == 1 {
		req.Template = args[0]
	}
	if req.Template == "" && req.Variant == "" {
		return errors.New("name a template or pass --modality")
	}

	data, err := readData(opts.data, cmd.InOrStdin())
	if err != nil {
		return err
	}
	req.Data = data

	engine := a.engine()
	defer engine.Close()

	result, err := engine.Render(cmd.Context(), req)
	if err != nil {
		return err
	}

	switch opts.out {
	case "-":
		_, err = cmd.OutOrStdout().Write(result.Data)
		return err
	case "":
		opts.out = result.Filename
	}
	if err := os.WriteFile(opts.out, result.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes) from %s\n", opts.out, len(result.Data), result.Template)
	return nil
}

// readData loads a data context. YAML files are recognised by extension;
// stdin is treated as JSON when it starts with an object.
func readData(name string, stdin io.Reader) (leodocs.TemplateData, error) {
	if name == "" {
		return leodocs.TemplateData{}, nil
	}

	var (
		raw []byte
		err error
	)
	if name == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	isJSON := bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{"))
	if name != "-" {
		ext := strings.ToLower(filepath.Ext(name))
		isJSON = ext != ".yaml" && ext != ".yml"
	}

	data := leodocs.TemplateData{}
	if isJSON {
		err = json.Unmarshal(raw, &data)
	} else {
		err = yaml.Unmarshal(raw, &data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse data %s: %w", name, err)
	}
	return data, nil
}
