package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"CreatorCanvas/internal/canvas"
)

// ErrProjectNotFound is returned when a named slot does not exist.
var ErrProjectNotFound = errors.New("project not found")

// ProjectData is the on-disk envelope for one saved project slot. The
// version tag is carried through unchanged on load.
type ProjectData struct {
	Version  string          `json:"version"`
	Name     string          `json:"name"`
	Canvas   canvas.Bounds   `json:"canvas"`
	SavedAt  time.Time       `json:"savedAt"`
	Elements canvas.Elements `json:"elements"`
}

// ProjectInfo describes one slot for listings.
type ProjectInfo struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	SavedAt      time.Time `json:"savedAt"`
	ElementCount int       `json:"elementCount"`
}

// Store persists named project slots as JSON files under one
// directory. One file per slot.
type Store struct {
	dir string
}

// NewStore creates the slot directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the element snapshot to the named slot, replacing any
// previous contents.
func (st *Store) Save(name string, elements []canvas.Element) error {
	data := ProjectData{
		Version:  canvas.MetadataVersion,
		Name:     name,
		Canvas:   canvas.DefaultBounds,
		SavedAt:  time.Now(),
		Elements: elements,
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project %q: %w", name, err)
	}
	if err := os.WriteFile(st.path(name), raw, 0o644); err != nil {
		return fmt.Errorf("write project %q: %w", name, err)
	}
	return nil
}

// Load reads the named slot back into element values.
func (st *Store) Load(name string) ([]canvas.Element, error) {
	raw, err := os.ReadFile(st.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("load %q: %w", name, ErrProjectNotFound)
		}
		return nil, fmt.Errorf("read project %q: %w", name, err)
	}
	var data ProjectData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode project %q: %w", name, err)
	}
	return []canvas.Element(data.Elements), nil
}

// List returns the saved slots, newest first.
func (st *Store) List() ([]ProjectInfo, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var infos []ProjectInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(st.dir, e.Name()))
		if err != nil {
			continue
		}
		var data ProjectData
		if err := json.Unmarshal(raw, &data); err != nil {
			continue // skip files other tools left behind
		}
		infos = append(infos, ProjectInfo{
			Name:         data.Name,
			Version:      data.Version,
			SavedAt:      data.SavedAt,
			ElementCount: len(data.Elements),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].SavedAt.After(infos[j].SavedAt) })
	return infos, nil
}

// Delete removes the named slot.
func (st *Store) Delete(name string) error {
	err := os.Remove(st.path(name))
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return fmt.Errorf("delete %q: %w", name, ErrProjectNotFound)
	}
	return fmt.Errorf("delete %q: %w", name, err)
}

func (st *Store) path(name string) string {
	return filepath.Join(st.dir, slug(name)+".json")
}

// slug keeps slot filenames filesystem-safe.
func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}
