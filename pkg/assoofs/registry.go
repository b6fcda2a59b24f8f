package assoofs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weberc2/assoofs/pkg/io"
	"github.com/weberc2/assoofs/pkg/log"
	. "github.com/weberc2/assoofs/pkg/types"
)

// Type is a mountable filesystem type.
type Type struct {
	Name  string
	Mount func(dev io.BlockDevice, opts Options) (*FileSystem, error)
}

// DefaultType mounts assoofs images.
var DefaultType = Type{Name: "assoofs", Mount: Mount}

// MountPoint is a filesystem mounted through a `Registry`. Calls through `Do`
// are serialized.
type MountPoint struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	MountedAt time.Time `json:"mountedAt"`

	fs     *FileSystem
	logger *slog.Logger
	mutex  sync.Mutex
}

// Do runs `f` against the mounted filesystem while holding the mount's lock.
func (m *MountPoint) Do(f func(fs *FileSystem) error) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return f(m.fs)
}

// Registry tracks registered filesystem types and their live mounts.
type Registry struct {
	logger *slog.Logger
	mutex  sync.Mutex
	types  map[string]Type
	mounts map[string]*MountPoint
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		types:  map[string]Type{},
		mounts: map[string]*MountPoint{},
	}
}

func (r *Registry) Register(t Type) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.types[t.Name]; exists {
		return fmt.Errorf("registering type `%s`: %w", t.Name, TypeExistsErr)
	}
	r.types[t.Name] = t
	r.logger.Info("registered filesystem type", "type", t.Name)
	return nil
}

func (r *Registry) Unregister(name string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, exists := r.types[name]; !exists {
		return fmt.Errorf("unregistering type `%s`: %w", name, TypeNotFoundErr)
	}
	delete(r.types, name)
	r.logger.Info("unregistered filesystem type", "type", name)
	return nil
}

// Mount mounts `dev` as a filesystem of type `typeName`. `source` describes
// the device for display. The filesystem logs through the logger carried by
// `ctx`.
func (r *Registry) Mount(
	ctx context.Context,
	typeName string,
	source string,
	dev io.BlockDevice,
) (*MountPoint, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	t, exists := r.types[typeName]
	if !exists {
		return nil, fmt.Errorf(
			"mounting `%s` as `%s`: %w",
			source,
			typeName,
			TypeNotFoundErr,
		)
	}

	id := uuid.NewString()
	logger := log.FromContext(ctx).With("mount", id, "source", source)
	fs, err := t.Mount(dev, Options{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("mounting `%s` as `%s`: %w", source, typeName, err)
	}
	m := &MountPoint{
		ID:        id,
		Type:      typeName,
		Source:    source,
		MountedAt: time.Now().UTC(),
		fs:        fs,
		logger:    logger,
	}
	r.mounts[id] = m
	return m, nil
}

func (r *Registry) Get(id string) (*MountPoint, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	m, exists := r.mounts[id]
	if !exists {
		return nil, fmt.Errorf("getting mount `%s`: %w", id, MountNotFoundErr)
	}
	return m, nil
}

// Mounts returns the live mounts ordered by mount time.
func (r *Registry) Mounts() []*MountPoint {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	mounts := make([]*MountPoint, 0, len(r.mounts))
	for _, m := range r.mounts {
		mounts = append(mounts, m)
	}
	sort.Slice(mounts, func(i, j int) bool {
		if mounts[i].MountedAt.Equal(mounts[j].MountedAt) {
			return mounts[i].ID < mounts[j].ID
		}
		return mounts[i].MountedAt.Before(mounts[j].MountedAt)
	})
	return mounts
}

func (r *Registry) Unmount(id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if err := r.unmount(id); err != nil {
		return fmt.Errorf("unmounting `%s`: %w", id, err)
	}
	return nil
}

// Close unmounts every live mount.
func (r *Registry) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var errs []error
	for id := range r.mounts {
		if err := r.unmount(id); err != nil {
			errs = append(errs, fmt.Errorf("unmounting `%s`: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) unmount(id string) error {
	m, exists := r.mounts[id]
	if !exists {
		return MountNotFoundErr
	}
	delete(r.mounts, id)
	if err := m.Do(func(fs *FileSystem) error {
		return fs.Unmount()
	}); err != nil {
		return err
	}
	m.logger.Info("released mount")
	return nil
}
