package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"knack/interpreter-go/pkg/ast"
	"knack/interpreter-go/pkg/runtime"
)

// Source is one program file staged for evaluation.
type Source struct {
	Origin   string
	Pack     string
	Elements []ast.Element
}

// Program is a fully loaded package: pack sources in dependency order
// followed by the root package's own programs, plus the merged initial
// variables. Everything evaluates in a single root scope, in Sources order.
type Program struct {
	Manifest  *Manifest
	Variables map[string]runtime.Value
	Sources   []Source
}

// Loader resolves locked packs against the cache and loads program files.
type Loader struct {
	cacheDir string
}

// NewLoader returns a loader that reads git packs from cacheDir. Path packs
// resolve to their recorded directories and need no cache.
func NewLoader(cacheDir string) *Loader {
	return &Loader{cacheDir: cacheDir}
}

// Load stages manifest's programs plus the packs recorded in lock. Pack
// sources come first, ordered so every pack follows its dependencies, which
// makes their top-level assignments visible to the root package's programs.
// Variables merge in the same order, so the root manifest wins collisions.
func (l *Loader) Load(manifest *Manifest, lock *Lockfile) (*Program, error) {
	if manifest == nil {
		return nil, fmt.Errorf("loader: nil manifest")
	}
	if len(manifest.Dependencies) > 0 && lock == nil {
		return nil, fmt.Errorf("loader: %s declares dependencies but has no %s; run knack deps install", manifest.Name, LockfileName)
	}

	program := &Program{
		Manifest:  manifest,
		Variables: make(map[string]runtime.Value),
	}

	if lock != nil {
		packs, err := sortPacks(lock.Packs)
		if err != nil {
			return nil, err
		}
		for _, pack := range packs {
			if err := l.loadPack(program, pack); err != nil {
				return nil, err
			}
		}
	}

	for name, val := range manifest.Variables {
		program.Variables[name] = val
	}
	for _, path := range manifest.ProgramPaths() {
		src, err := loadSource(path, "")
		if err != nil {
			return nil, err
		}
		program.Sources = append(program.Sources, src)
	}
	return program, nil
}

// LoadProgramFile reads and decodes one .knack program file.
func LoadProgramFile(path string) ([]ast.Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	elements, err := ast.DecodeProgram(data)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	return elements, nil
}

// PackCacheDir returns the cache directory for one git pack version.
func PackCacheDir(cacheDir, name, version string) string {
	return filepath.Join(cacheDir, sanitizeSegment(name), sanitizePathSegment(version))
}

func (l *Loader) loadPack(program *Program, pack *LockedPack) error {
	dir, err := l.packDir(pack)
	if err != nil {
		return err
	}
	packManifest, err := LoadManifest(filepath.Join(dir, ManifestName))
	if err != nil {
		return fmt.Errorf("loader: pack %s: %w", pack.Name, err)
	}
	for name, val := range packManifest.Variables {
		program.Variables[name] = val
	}
	for _, path := range packManifest.ProgramPaths() {
		src, err := loadSource(path, pack.Name)
		if err != nil {
			return err
		}
		program.Sources = append(program.Sources, src)
	}
	return nil
}

func (l *Loader) packDir(pack *LockedPack) (string, error) {
	source := strings.TrimSpace(pack.Source)
	switch {
	case strings.HasPrefix(source, "path:"):
		return strings.TrimPrefix(source, "path:"), nil
	case strings.HasPrefix(source, "git+"):
		if l.cacheDir == "" {
			return "", fmt.Errorf("loader: pack %s needs a cache directory", pack.Name)
		}
		return PackCacheDir(l.cacheDir, pack.Name, pack.Version), nil
	default:
		return "", fmt.Errorf("loader: pack %s has unsupported source %q", pack.Name, pack.Source)
	}
}

func loadSource(path, pack string) (Source, error) {
	elements, err := LoadProgramFile(path)
	if err != nil {
		return Source{}, err
	}
	return Source{Origin: path, Pack: pack, Elements: elements}, nil
}

// sortPacks orders packs so every pack follows its dependencies, breaking
// ties alphabetically for determinism.
func sortPacks(packs []*LockedPack) ([]*LockedPack, error) {
	byName := make(map[string]*LockedPack, len(packs))
	indegree := make(map[string]int, len(packs))
	dependents := make(map[string][]string)
	for _, pack := range packs {
		if pack == nil {
			continue
		}
		byName[pack.Name] = pack
		indegree[pack.Name] = 0
	}
	for _, pack := range packs {
		if pack == nil {
			continue
		}
		for _, dep := range pack.Dependencies {
			if _, ok := byName[dep.Name]; !ok {
				return nil, fmt.Errorf("loader: pack %s depends on %s, which is not locked", pack.Name, dep.Name)
			}
			indegree[pack.Name]++
			dependents[dep.Name] = append(dependents[dep.Name], pack.Name)
		}
	}

	var ready []string
	for name, degree := range indegree {
		if degree == 0 {
			ready = append(ready, name)
		}
	}

	ordered := make([]*LockedPack, 0, len(byName))
	for len(ready) > 0 {
		sort.Strings(ready)
		name := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[name])
		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}
	if len(ordered) != len(byName) {
		return nil, fmt.Errorf("loader: pack dependency cycle detected")
	}
	return ordered, nil
}

// sanitizePathSegment keeps cache directory names portable.
func sanitizePathSegment(segment string) string {
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return "head"
	}
	var b strings.Builder
	for _, r := range segment {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	result := b.String()
	if result == "" {
		return "head"
	}
	return result
}
