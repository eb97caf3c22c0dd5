package saves

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const fileExt = ".yaml"

// FileStore keeps one YAML file per slot in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(slot string) string {
	return filepath.Join(s.dir, slot+fileExt)
}

func (s *FileStore) Save(ctx context.Context, slot string, g Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	data, err := encode(g)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create save dir: %w", err)
	}

	// write then rename so a crash never leaves a half-written slot
	tmp, err := os.CreateTemp(s.dir, "."+slot+"-*")
	if err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", slot, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	if err := os.Rename(tmp.Name(), s.path(slot)); err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, slot string) (Game, error) {
	if err := ctx.Err(); err != nil {
		return Game{}, err
	}
	if err := ValidateSlot(slot); err != nil {
		return Game{}, err
	}
	data, err := os.ReadFile(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return Game{}, fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	if err != nil {
		return Game{}, fmt.Errorf("load %s: %w", slot, err)
	}
	return decode(data)
}

func (s *FileStore) List(ctx context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}

	infos := []Info{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		slot := strings.TrimSuffix(name, fileExt)
		if ValidateSlot(slot) != nil {
			continue
		}
		g, err := s.Load(ctx, slot)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info(slot, g))
	}
	sortInfos(infos)
	return infos, nil
}

func (s *FileStore) Delete(ctx context.Context, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	err := os.Remove(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	return err
}

func (s *FileStore) Close() error { return nil }
