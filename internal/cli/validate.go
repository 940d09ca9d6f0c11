package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/markup"
)

// FileError reports one invalid tree file.
type FileError struct {
	File    string `json:"file"`
	Pos     string `json:"pos,omitempty"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool        `json:"valid"`
	Files  int         `json:"files"`
	Errors []FileError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate tree files without rendering",
		Long: `Decode tree files (YAML or CUE) and report every malformed element,
template or property with its source position. Directories are searched
recursively for .yaml, .yml and .cue files.

Each file is decoded with its own registry, so a file may only use the
component templates it defines itself.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	files, err := findTreeFiles(paths)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find tree files", err)
	}
	if len(files) == 0 {
		_ = formatter.Error(ErrCodeNotFound, "no tree files found", paths)
		return NewExitError(ExitCommandError, "no tree files found")
	}
	formatter.VerboseLog("Found %d tree file(s)", len(files))

	result := ValidationResult{Valid: true, Files: len(files)}
	for _, f := range files {
		formatter.VerboseLog("Validating %s", f)
		reg := markup.NewRegistry(markup.WithAutoListeners())
		if _, err := markup.LoadFile(f, reg); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, fileError(f, err))
		}
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeInvalidTree,
				Message: fmt.Sprintf("%d invalid tree file(s)", len(result.Errors)),
			}
		}
		if err := formatter.Response(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		if result.Valid {
			fmt.Fprintf(w, "✓ All tree files valid (%d)\n", result.Files)
		} else {
			fmt.Fprintf(w, "✗ %d of %d tree file(s) invalid\n", len(result.Errors), result.Files)
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s: %s\n", e.File, e.Message)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d invalid tree file(s)", ErrCodeInvalidTree, len(result.Errors)))
	}
	return nil
}

func fileError(file string, err error) FileError {
	fe := FileError{File: file, Message: err.Error()}
	var de *markup.DecodeError
	if errors.As(err, &de) {
		fe.Pos = de.Pos
		fe.Path = de.Path
	}
	return fe
}

// findTreeFiles expands directories into the tree files below them. Files
// named explicitly are kept whatever their extension, so LoadFile can
// report unsupported ones.
func findTreeFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && markup.IsTreeFile(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}
