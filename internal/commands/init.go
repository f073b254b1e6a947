package commands

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/cdd-platform/cdd/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

const specTemplate = "templates/openapi.yml"

type InitOptions struct {
	ProjectName string
	// Force overwrites an existing cdd.yml and spec.
	Force bool
}

type FileSystem interface {
	Stat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	WriteFile(name string, data []byte, perm os.FileMode) error
	Getwd() (string, error)
}

type osFileSystem struct{}

func (fs *osFileSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (fs *osFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (fs *osFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (fs *osFileSystem) Getwd() (string, error) {
	return os.Getwd()
}

type InitCommand struct {
	filesystem  FileSystem
	templatesFS fs.FS
	out         io.Writer
	force       bool
	// If set, skip prompting
	preset *InitOptions
}

func NewInitCommand(out io.Writer) *InitCommand {
	return &InitCommand{
		filesystem:  &osFileSystem{},
		templatesFS: templatesFS,
		out:         out,
	}
}

// Init writes a default cdd.yml and a starter spec into the working directory.
func (c *Controller) Init(ctx context.Context, opts InitOptions) error {
	cmd := NewInitCommand(c.out())
	cmd.force = opts.Force
	if opts.ProjectName != "" {
		cmd.preset = &opts
	}
	return cmd.Run(ctx)
}

func (ic *InitCommand) Run(ctx context.Context) error {
	return ic.RunWithOptions(ctx)
}

func (ic *InitCommand) RunWithOptions(ctx context.Context, opts ...tea.ProgramOption) error {
	dir, err := ic.filesystem.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(dir, config.FileName)
	if !ic.force && ic.exists(configPath) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", config.FileName)
	}

	var options *InitOptions

	if ic.preset != nil {
		options = ic.preset
	} else {
		options, err = ic.promptInitOptions(filepath.Base(dir), opts...)
		if err != nil {
			return fmt.Errorf("failed to get init options: %w", err)
		}
	}

	cfg := config.Default(options.ProjectName)
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	if err := ic.filesystem.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.FileName, err)
	}
	fmt.Fprintf(ic.out, "✅ Wrote default config to %s\n", configPath)

	specPath := filepath.Join(dir, cfg.OpenAPI)
	if !ic.force && ic.exists(specPath) {
		fmt.Fprintf(ic.out, "📄 Keeping existing spec %s\n", specPath)
		return nil
	}
	if err := ic.writeSpec(specPath, options.ProjectName); err != nil {
		return err
	}
	fmt.Fprintf(ic.out, "✅ Wrote starter spec to %s\n", specPath)
	return nil
}

func (ic *InitCommand) exists(path string) bool {
	_, err := ic.filesystem.Stat(path)
	return err == nil
}

func (ic *InitCommand) writeSpec(path, projectName string) error {
	data, err := fs.ReadFile(ic.templatesFS, specTemplate)
	if err != nil {
		return fmt.Errorf("failed to read spec template: %w", err)
	}

	data = []byte(strings.ReplaceAll(string(data), "{{project_name}}", projectName))
	if err := ic.filesystem.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write spec: %w", err)
	}
	return nil
}

func (ic *InitCommand) promptInitOptions(defaultName string, opts ...tea.ProgramOption) (*InitOptions, error) {
	projectName := defaultName

	form := ic.createInitForm(&projectName)

	if len(opts) > 0 {
		// For testing: run with provided options
		program := tea.NewProgram(form, opts...)
		if _, err := program.Run(); err != nil {
			return nil, err
		}
	} else {
		// Normal execution
		if err := form.Run(); err != nil {
			return nil, err
		}
	}

	return &InitOptions{
		ProjectName: projectName,
		Force:       ic.force,
	}, nil
}

func (ic *InitCommand) createInitForm(projectName *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Description("Name of the API described by your spec").
				Value(projectName).
				Validate(validateProjectName),
		),
	)
}

func validateProjectName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("project name cannot be empty")
	}
	if strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("project name %q cannot contain path separators", s)
	}
	return nil
}

// copyTree copies every file under src into dest, overwriting existing files.
func copyTree(filesystem FileSystem, src fs.FS, dest string) error {
	return fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		destPath := filepath.Join(dest, filepath.FromSlash(path))

		if d.IsDir() {
			return filesystem.MkdirAll(destPath, 0755)
		}

		data, err := fs.ReadFile(src, path)
		if err != nil {
			return err
		}

		return filesystem.WriteFile(destPath, data, 0644)
	})
}
