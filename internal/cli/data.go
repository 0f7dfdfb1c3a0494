package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"goaltracker/internal/models"
	"goaltracker/internal/ui"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

// snapshotFormat picks the encoding from an explicit flag or the file
// extension, defaulting to JSON.
func snapshotFormat(flag, path string) (string, error) {
	switch strings.ToLower(flag) {
	case formatJSON:
		return formatJSON, nil
	case formatYAML, "yml":
		return formatYAML, nil
	case "":
	default:
		return "", models.NewValidationError("unknown format %q (use json or yaml)", flag)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	}
	return formatJSON, nil
}

// encodeSnapshot writes snap with the same field names in both formats.
// YAML goes through the JSON form so camelCase keys and RFC 3339 timestamps
// are kept.
func encodeSnapshot(w io.Writer, snap *models.Snapshot, format string) error {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if format == formatJSON {
		_, err = w.Write(append(raw, '\n'))
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func decodeSnapshot(data []byte, format string) (*models.Snapshot, error) {
	if format == formatYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, models.NewValidationError("invalid YAML snapshot: %v", err)
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, models.NewValidationError("invalid YAML snapshot: %v", err)
		}
		data = raw
	}

	var snap models.Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&snap); err != nil {
		return nil, models.NewValidationError("invalid snapshot: %v", err)
	}
	return &snap, nil
}

func newExportCmd(a *app) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every task, goal, setting and statistic to a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := snapshotFormat(format, out)
			if err != nil {
				return err
			}
			return a.withSession(cmd.Context(), func(s *session) error {
				snap, err := s.coord.ExportAll(cmd.Context())
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					return encodeSnapshot(a.out, snap, f)
				}

				var buf bytes.Buffer
				if err := encodeSnapshot(&buf, snap, f); err != nil {
					return err
				}
				if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
					return fmt.Errorf("write snapshot: %w", err)
				}
				a.println(ui.Good.Render(fmt.Sprintf("%s exported %d tasks and %d goals to %s",
					ui.IconBox, len(snap.Tasks), len(snap.Goals), out)))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default from the file extension, else json)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var format string
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all data with the contents of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := snapshotFormat(format, path)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read snapshot: %w", err)
			}
			snap, err := decodeSnapshot(data, f)
			if err != nil {
				return err
			}

			a.println(ui.Heading(ui.IconBox, "Import "+filepath.Base(path)))
			a.println(ui.LabelValue("Contains", fmt.Sprintf("%d tasks, %d goals", len(snap.Tasks), len(snap.Goals))))
			if !yes {
				a.println(ui.Warn.Render(ui.IconWarn + " this replaces all current data; rerun with --yes to apply"))
				return nil
			}

			return a.withSession(cmd.Context(), func(s *session) error {
				if err := s.coord.ImportAll(cmd.Context(), snap); err != nil {
					return err
				}
				if err := s.load(cmd.Context()); err != nil {
					return err
				}
				a.println(ui.Good.Render(ui.IconDone + " import complete"))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "json or yaml (default from the file extension)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Apply the import")
	return cmd
}
