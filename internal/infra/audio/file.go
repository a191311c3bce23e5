package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/XaviFdez/proyecto-emergencia/internal/application"
	"github.com/XaviFdez/proyecto-emergencia/internal/domain"
)

// FileStore keeps clips as files in a single directory.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (f *FileStore) Dir() string {
	return f.dir
}

// Init creates the clip directory. It stands in for mounting the card.
func (f *FileStore) Init() error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return fmt.Errorf("%w: creating clip dir: %w", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func (f *FileStore) path(name string) (string, error) {
	if err := domain.ValidateClipName(name); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, name), nil
}

// Create opens name for writing, truncating any previous recording.
func (f *FileStore) Create(name string) (application.ClipWriter, error) {
	path, err := f.path(name)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating clip %s: %w", name, err)
	}
	return file, nil
}

func (f *FileStore) Open(name string) (application.ClipReader, error) {
	path, err := f.path(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening clip %s: %w", name, err)
	}
	return file, nil
}

// List returns the wav clips in the directory sorted by name.
func (f *FileStore) List() ([]domain.Clip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading dir: %w", domain.ErrStorageUnavailable, err)
	}

	clips := make([]domain.Clip, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		clips = append(clips, domain.Clip{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(clips, func(i, j int) bool { return clips[i].Name < clips[j].Name })
	return clips, nil
}
