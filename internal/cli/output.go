package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"klinedash/internal/logger"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func parseFormat(cmd *cobra.Command) (string, error) {
	f, _ := cmd.Flags().GetString("output")
	switch strings.ToLower(strings.TrimSpace(f)) {
	case "", formatTable:
		return formatTable, nil
	case formatJSON:
		return formatJSON, nil
	case formatYAML, "yml":
		return formatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q", f)
	}
}

// Output handles formatted output for the CLI.
type Output struct {
	writer io.Writer
	format string
}

// NewOutput creates a new Output instance.
func NewOutput(cmd *cobra.Command) *Output {
	format, err := parseFormat(cmd)
	if err != nil {
		format = formatTable
	}
	return &Output{writer: cmd.OutOrStdout(), format: format}
}

// Render writes data as JSON or YAML, or calls table for the table format.
func (o *Output) Render(data any, table func(w *tabwriter.Writer)) error {
	switch o.format {
	case formatJSON:
		enc := json.NewEncoder(o.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case formatYAML:
		enc := yaml.NewEncoder(o.writer)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(o.writer, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

func (o *Output) Printf(format string, args ...any) {
	fmt.Fprintf(o.writer, format, args...)
}

func row(w io.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(w, strings.Join(parts, "\t"))
}

func printPanel(w io.Writer, entries []logger.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row(tw, "TIME", "LEVEL", "MESSAGE")
	for _, e := range entries {
		row(tw, e.Timestamp.Format("15:04:05"), e.Level, e.Message)
	}
	_ = tw.Flush()
}

// writeFile writes chart output, "-" meaning stdout.
func writeFile(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	logger.Successf("已写入 %s (%d bytes)", path, len(data))
	return nil
}

func fmtFloat(v float64) string { return fmt.Sprintf("%.2f", v) }

func fmtPtr(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmtFloat(*v)
}
