package runtime

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// ErrUnknownRuntime is returned when a name names no persisted runtime.
type ErrUnknownRuntime struct {
	Name string
}

func (e ErrUnknownRuntime) Error() string {
	return fmt.Sprintf("runtime: unknown runtime %q", e.Name)
}

// Store persists Runtime documents as YAML files under a root
// directory, one subdirectory per runtime, mirroring the Repository's
// recipe/package YAML layout.
type Store struct {
	root string
}

// NewStore returns a Store rooted at root, creating it if absent.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) dir(name string) string {
	return filepath.Join(s.root, name)
}

func (s *Store) docPath(name string) string {
	return filepath.Join(s.dir(name), "runtime.yaml")
}

// Save persists r, creating its directory if this is the first save.
func (s *Store) Save(r *Runtime) error {
	if err := os.MkdirAll(s.dir(r.Name), 0o755); err != nil {
		return err
	}
	out, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(s.docPath(r.Name), out, 0o644)
}

// Load reads the runtime named name, setting RootDir to its directory
// under this store.
func (s *Store) Load(name string) (*Runtime, error) {
	raw, err := os.ReadFile(s.docPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrUnknownRuntime{Name: name}
		}
		return nil, err
	}
	var r Runtime
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	r.RootDir = s.dir(name)
	return &r, nil
}

// Remove deletes a runtime's persisted document and working directory.
// Removing an absent runtime is not an error ( teardown
// is idempotent by design: a crashed monitor may retry it).
func (s *Store) Remove(name string) error {
	if err := os.RemoveAll(s.dir(name)); err != nil {
		return err
	}
	return nil
}

// List returns every persisted runtime's name.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, e.Name(), "runtime.yaml")); err == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
