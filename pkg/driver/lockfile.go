package driver

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Lockfile models the package.lock contents: the resolved pack graph for one
// root package.
type Lockfile struct {
	Path      string
	Root      string
	Generated string
	Tool      string
	Packs     []*LockedPack
}

// LockedPack captures a single resolved pack.
type LockedPack struct {
	Name         string
	Version      string
	Source       string
	Checksum     string
	Dependencies []LockedDependency
}

// LockedDependency identifies a dependency edge in the resolved pack graph.
type LockedDependency struct {
	Name    string
	Version string
}

// GitSource renders the locked source string for a git checkout.
func GitSource(url, rev string) string {
	return fmt.Sprintf("git+%s@%s", url, rev)
}

// PathSource renders the locked source string for a local directory.
func PathSource(path string) string {
	return "path:" + path
}

// NewLockfile constructs a lockfile with metadata seeded for the given root.
func NewLockfile(root, tool string) *Lockfile {
	return &Lockfile{
		Root:      sanitizeSegment(root),
		Generated: time.Now().UTC().Format(time.RFC3339),
		Tool:      strings.TrimSpace(tool),
		Packs:     []*LockedPack{},
	}
}

// LoadLockfile parses package.lock from disk.
func LoadLockfile(path string) (*Lockfile, error) {
	if path == "" {
		return nil, fmt.Errorf("lockfile: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var raw lockfileDisk
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("lockfile: parse %s: %w", abs, err)
	}

	lock := raw.toLockfile()
	lock.Path = abs
	lock.normalize()
	return lock, nil
}

// WriteLockfile serialises the lockfile to disk, filling in metadata the
// caller left empty.
func WriteLockfile(lock *Lockfile, path string) error {
	if lock == nil {
		return fmt.Errorf("lockfile: nil lockfile")
	}
	if path == "" {
		if lock.Path == "" {
			return fmt.Errorf("lockfile: missing path")
		}
		path = lock.Path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}

	if lock.Generated == "" {
		lock.Generated = time.Now().UTC().Format(time.RFC3339)
	}
	lock.Path = abs
	lock.normalize()

	data := lock.toDisk()
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("lockfile: marshal %s: %w", abs, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("lockfile: encoder close: %w", err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", abs, err)
	}
	return nil
}

// Pack returns the locked entry with the given name.
func (l *Lockfile) Pack(name string) (*LockedPack, bool) {
	if l == nil {
		return nil, false
	}
	name = sanitizeSegment(name)
	for _, pack := range l.Packs {
		if pack != nil && pack.Name == name {
			return pack, true
		}
	}
	return nil, false
}

func (l *Lockfile) normalize() {
	if l == nil {
		return
	}
	l.Root = sanitizeSegment(l.Root)
	l.Tool = strings.TrimSpace(l.Tool)
	packs := l.Packs[:0]
	for _, pack := range l.Packs {
		if pack == nil {
			continue
		}
		pack.Name = sanitizeSegment(pack.Name)
		if pack.Name == "" {
			continue
		}
		pack.Version = strings.TrimSpace(pack.Version)
		pack.Source = strings.TrimSpace(pack.Source)
		pack.Checksum = strings.TrimSpace(pack.Checksum)
		for k := range pack.Dependencies {
			pack.Dependencies[k].Name = sanitizeSegment(pack.Dependencies[k].Name)
			pack.Dependencies[k].Version = strings.TrimSpace(pack.Dependencies[k].Version)
		}
		sort.SliceStable(pack.Dependencies, func(i, j int) bool {
			if pack.Dependencies[i].Name == pack.Dependencies[j].Name {
				return pack.Dependencies[i].Version < pack.Dependencies[j].Version
			}
			return pack.Dependencies[i].Name < pack.Dependencies[j].Name
		})
		packs = append(packs, pack)
	}
	l.Packs = packs
	sort.SliceStable(l.Packs, func(i, j int) bool {
		return l.Packs[i].Name < l.Packs[j].Name
	})
}

func (l *Lockfile) toDisk() lockfileDisk {
	packs := make([]lockfilePack, 0, len(l.Packs))
	for _, pack := range l.Packs {
		if pack == nil {
			continue
		}
		deps := make([]lockfileDependency, 0, len(pack.Dependencies))
		for _, dep := range pack.Dependencies {
			deps = append(deps, lockfileDependency{
				Name:    dep.Name,
				Version: dep.Version,
			})
		}
		packs = append(packs, lockfilePack{
			Name:         pack.Name,
			Version:      pack.Version,
			Source:       pack.Source,
			Checksum:     pack.Checksum,
			Dependencies: deps,
		})
	}
	return lockfileDisk{
		Root:      l.Root,
		Generated: l.Generated,
		Tool:      l.Tool,
		Packs:     packs,
	}
}

type lockfileDisk struct {
	Root      string         `yaml:"root"`
	Generated string         `yaml:"generated"`
	Tool      string         `yaml:"tool"`
	Packs     []lockfilePack `yaml:"packs"`
}

type lockfilePack struct {
	Name         string               `yaml:"name"`
	Version      string               `yaml:"version"`
	Source       string               `yaml:"source"`
	Checksum     string               `yaml:"checksum"`
	Dependencies []lockfileDependency `yaml:"dependencies"`
}

type lockfileDependency struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

func (d lockfileDisk) toLockfile() *Lockfile {
	lock := &Lockfile{
		Root:      sanitizeSegment(d.Root),
		Generated: strings.TrimSpace(d.Generated),
		Tool:      strings.TrimSpace(d.Tool),
		Packs:     make([]*LockedPack, 0, len(d.Packs)),
	}
	for _, pack := range d.Packs {
		deps := make([]LockedDependency, 0, len(pack.Dependencies))
		for _, dep := range pack.Dependencies {
			deps = append(deps, LockedDependency{
				Name:    sanitizeSegment(dep.Name),
				Version: strings.TrimSpace(dep.Version),
			})
		}
		lock.Packs = append(lock.Packs, &LockedPack{
			Name:         sanitizeSegment(pack.Name),
			Version:      strings.TrimSpace(pack.Version),
			Source:       strings.TrimSpace(pack.Source),
			Checksum:     strings.TrimSpace(pack.Checksum),
			Dependencies: deps,
		})
	}
	lock.normalize()
	return lock
}
