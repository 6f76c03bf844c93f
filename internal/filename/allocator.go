package filename

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Allocator serializes collision resolution per destination directory
// so two concurrent receiver sessions never claim the same path.
type Allocator struct {
	mu   sync.Mutex
	dirs map[string]*sync.Mutex
}

// NewAllocator creates an empty Allocator.
func NewAllocator() *Allocator {
	return &Allocator{dirs: make(map[string]*sync.Mutex)}
}

func (a *Allocator) dirLock(dir string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.dirs[dir]
	if !ok {
		l = &sync.Mutex{}
		a.dirs[dir] = l
	}
	return l
}

// Reserve resolves collisions for safeName in dir and creates the
// resulting file for exclusive write. The caller owns the returned
// handle and is responsible for removing the file on failure.
func (a *Allocator) Reserve(dir, safeName string) (string, *os.File, error) {
	lock := a.dirLock(dir)
	lock.Lock()
	defer lock.Unlock()

	for {
		name := Resolve(safeName, func(candidate string) bool {
			_, err := os.Stat(filepath.Join(dir, candidate))
			return err == nil
		})
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return path, f, nil
		}
		// A writer outside this process may have raced us; resolve again.
		if !os.IsExist(err) {
			return "", nil, fmt.Errorf("failed to create %s: %w", path, err)
		}
	}
}
