package leodocs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Store yields template bytes by identifier. The engine never reads the
// filesystem itself; it renders whatever bytes the store returns.
type Store interface {
	Open(ctx context.Context, id string) ([]byte, error)
}

// Lister is implemented by stores that can enumerate their templates.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

func notFound(id string, cause error) error {
	if cause == nil {
		return NewDocumentError("open", id, ErrTemplateNotFound)
	}
	return NewDocumentError("open", id, errors.Join(ErrTemplateNotFound, cause))
}

// cleanID validates a template identifier: a relative, slash-separated path
// that stays inside the store.
func cleanID(id string) (string, error) {
	if id == "" || strings.ContainsRune(id, '\\') || strings.ContainsRune(id, 0) {
		return "", notFound(id, errors.New("invalid template id"))
	}
	cleaned := path.Clean(id)
	if !fs.ValidPath(cleaned) || cleaned == "." {
		return "", notFound(id, errors.New("invalid template id"))
	}
	return cleaned, nil
}

// DirStore reads templates from a directory.
type DirStore struct {
	root string
}

// NewDirStore returns a store rooted at dir.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

// Root returns the directory the store reads from.
func (s *DirStore) Root() string {
	return s.root
}

// Open reads a template file. Identifiers escaping the root are rejected.
func (s *DirStore) Open(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleaned, err := cleanID(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(cleaned)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(id, nil)
		}
		return nil, NewDocumentError("open", id, err)
	}
	return data, nil
}

// List returns the .docx files under the root as slash-separated identifiers.
func (s *DirStore) List(ctx context.Context) ([]string, error) {
	return listDocx(ctx, os.DirFS(s.root))
}

// FSStore reads templates from an fs.FS such as an embedded directory.
type FSStore struct {
	fsys fs.FS
}

// NewFSStore returns a store backed by fsys.
func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

func (s *FSStore) Open(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleaned, err := cleanID(id)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(s.fsys, cleaned)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(id, nil)
		}
		return nil, NewDocumentError("open", id, err)
	}
	return data, nil
}

func (s *FSStore) List(ctx context.Context) ([]string, error) {
	return listDocx(ctx, s.fsys)
}

func listDocx(ctx context.Context, fsys fs.FS) ([]string, error) {
	var ids []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(path.Ext(p), ".docx") && !strings.HasPrefix(path.Base(p), "~$") {
			ids = append(ids, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// MemoryStore keeps templates in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{templates: map[string][]byte{}}
}

// Put stores a template under id.
func (s *MemoryStore) Put(id string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[id] = data
}

// Delete removes a template.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, id)
}

func (s *MemoryStore) Open(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.templates[id]
	if !ok {
		return nil, notFound(id, nil)
	}
	return data, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
