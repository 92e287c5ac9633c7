// Package file provides file-based persistence for projects, workflows and action records.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/taskflow/pkg/persistence"
)

const (
	projectsDir  = "projects"
	workflowsDir = "workflows"
	actionsDir   = "actions"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root        string
	projectRepo *ProjectRepository
	workflowRep *WorkflowRepository
	actionRepo  *ActionRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
// A leading file:// scheme is accepted.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:        cleanRoot,
		projectRepo: NewProjectRepository(cleanRoot),
		workflowRep: NewWorkflowRepository(cleanRoot),
		actionRepo:  NewActionRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	info, err := os.Stat(fp.root)
	if err != nil {
		return fmt.Errorf("persistence root %s unavailable: %w", fp.root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("persistence root %s is not a directory", fp.root)
	}

	return nil
}

func (fp *Persistence) ProjectRepository() persistence.ProjectRepository {
	return fp.projectRepo
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRep
}

func (fp *Persistence) ActionRepository() persistence.ActionRepository {
	return fp.actionRepo
}

func entityPath(root, dir, id string) string {
	return filepath.Join(root, dir, filepath.Base(filepath.Clean(id))+".json")
}

// readJSON decodes the entity file into v. It returns fs.ErrNotExist when
// the file is missing.
func readJSON(root, dir, id string, v any) error {
	body, err := os.ReadFile(entityPath(root, dir, id))
	if err != nil {
		return err
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s/%s: %w", dir, id, err)
	}

	return nil
}

// writeJSON replaces the entity file through a temporary file and a rename,
// so readers never see a partial document.
func writeJSON(root, dir, id string, v any) error {
	dirPath := filepath.Join(root, dir)

	err := os.MkdirAll(dirPath, 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", dir, id, err)
	}

	tmp, err := os.CreateTemp(dirPath, ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	_, err = tmp.Write(data)
	if err != nil {
		_ = tmp.Close()

		return fmt.Errorf("failed to write %s/%s: %w", dir, id, err)
	}

	err = tmp.Close()
	if err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	err = os.Rename(tmp.Name(), entityPath(root, dir, id))
	if err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", dir, id, err)
	}

	return nil
}

func removeJSON(root, dir, id string) error {
	err := os.Remove(entityPath(root, dir, id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s/%s: %w", dir, id, err)
	}

	return nil
}

// listIDs returns the ids of all stored entities in dir.
func listIDs(root, dir string) ([]string, error) {
	jsonFiles, err := fs.Glob(os.DirFS(filepath.Join(root, dir)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", dir, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		if strings.HasPrefix(file, ".tmp-") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}
