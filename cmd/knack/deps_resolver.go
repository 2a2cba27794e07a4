package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"knack/interpreter-go/pkg/driver"
)

// resolvedPack is one dependency after fetching: its lock entry, its
// manifest, and the directory the manifest was read from.
type resolvedPack struct {
	pack     *driver.LockedPack
	manifest *driver.Manifest
	root     string
}

// packInstaller resolves a manifest's dependency tree into lock entries.
// Path dependencies link in place; git dependencies are cloned into the
// cache, one directory per pack name and pinned version.
type packInstaller struct {
	manifest     *driver.Manifest
	manifestRoot string
	cacheRoot    string
	logs         []string
	git          *gitFetcher
	resolved     map[string]*driver.LockedPack
	resolving    map[string]bool
}

func newPackInstaller(manifest *driver.Manifest, cacheRoot string) *packInstaller {
	var root string
	if manifest != nil {
		root = manifest.Dir()
	}
	return &packInstaller{
		manifest:     manifest,
		manifestRoot: root,
		cacheRoot:    cacheRoot,
		logs:         []string{},
		git:          newGitFetcher(cacheRoot),
		resolved:     make(map[string]*driver.LockedPack),
		resolving:    make(map[string]bool),
	}
}

// Install resolves every declared dependency transitively and replaces
// lock.Packs with the result. It reports whether the lock entries changed.
func (p *packInstaller) Install(lock *driver.Lockfile) (bool, []string, error) {
	if p.manifest == nil {
		return false, p.logs, nil
	}

	p.resolved = make(map[string]*driver.LockedPack)
	p.resolving = make(map[string]bool)

	names := make([]string, 0, len(p.manifest.Dependencies))
	for name := range p.manifest.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := p.manifest.Dependencies[name]
		if spec == nil {
			return false, p.logs, fmt.Errorf("dependency %q has no descriptor", name)
		}
		if err := p.installPack(name, clonePackSpec(spec)); err != nil {
			return false, p.logs, err
		}
	}

	desired := make([]*driver.LockedPack, 0, len(p.resolved))
	for _, pack := range p.resolved {
		desired = append(desired, pack)
	}
	sort.SliceStable(desired, func(i, j int) bool {
		if desired[i].Name == desired[j].Name {
			return desired[i].Version < desired[j].Version
		}
		return desired[i].Name < desired[j].Name
	})

	existing := make(map[string]*driver.LockedPack, len(lock.Packs))
	for _, pack := range lock.Packs {
		if pack == nil {
			continue
		}
		existing[pack.Name] = pack
	}

	changed := len(desired) != len(existing)
	for _, pack := range desired {
		current, ok := existing[pack.Name]
		if !ok || !lockedPackEqual(current, pack) {
			changed = true
		}
	}

	lock.Packs = desired
	return changed, p.logs, nil
}

func (p *packInstaller) installPack(name string, spec *driver.DependencySpec) error {
	if spec == nil {
		return fmt.Errorf("dependency %q has no descriptor", name)
	}
	canonical := sanitizeName(name)
	if _, exists := p.resolved[canonical]; exists {
		return nil
	}
	if p.resolving[canonical] {
		return fmt.Errorf("dependency cycle detected at %s", canonical)
	}
	p.resolving[canonical] = true
	defer delete(p.resolving, canonical)

	res, err := p.resolvePack(name, spec)
	if err != nil {
		return err
	}
	if got := res.manifest.Name; got != canonical {
		return fmt.Errorf("dependency %q: pack manifest names it %q; the names must match", name, got)
	}

	pack := res.pack
	pack.Dependencies = nil

	childNames := make([]string, 0, len(res.manifest.Dependencies))
	for childName := range res.manifest.Dependencies {
		childNames = append(childNames, childName)
	}
	sort.Strings(childNames)

	seen := make(map[string]struct{}, len(childNames))
	for _, childName := range childNames {
		childSpec := clonePackSpec(res.manifest.Dependencies[childName])
		if childSpec == nil {
			return fmt.Errorf("dependency %s lists %s without descriptor", pack.Name, childName)
		}
		// Relative path deps of a pack resolve against that pack's own
		// directory, not the root manifest's.
		if childSpec.Path != "" && !filepath.IsAbs(childSpec.Path) {
			childSpec.Path = filepath.Clean(filepath.Join(res.root, childSpec.Path))
		}
		if err := p.installPack(childName, childSpec); err != nil {
			return err
		}
		childCanonical := sanitizeName(childName)
		childPack, ok := p.resolved[childCanonical]
		if !ok {
			return fmt.Errorf("resolved child pack %s missing from installer state", childName)
		}
		if _, dup := seen[childPack.Name]; dup {
			continue
		}
		seen[childPack.Name] = struct{}{}
		pack.Dependencies = append(pack.Dependencies, driver.LockedDependency{
			Name:    childPack.Name,
			Version: childPack.Version,
		})
	}
	sort.SliceStable(pack.Dependencies, func(i, j int) bool {
		if pack.Dependencies[i].Name == pack.Dependencies[j].Name {
			return pack.Dependencies[i].Version < pack.Dependencies[j].Version
		}
		return pack.Dependencies[i].Name < pack.Dependencies[j].Name
	})

	p.resolved[canonical] = pack
	return nil
}

func (p *packInstaller) resolvePack(name string, spec *driver.DependencySpec) (*resolvedPack, error) {
	switch {
	case spec.Path != "":
		return p.resolvePathPack(name, spec)
	case spec.Git != "":
		return p.resolveGitPack(name, spec)
	default:
		return nil, fmt.Errorf("dependency %q: unsupported descriptor", name)
	}
}

func (p *packInstaller) resolvePathPack(name string, spec *driver.DependencySpec) (*resolvedPack, error) {
	pathSpec := spec.Path
	if !filepath.IsAbs(pathSpec) {
		pathSpec = filepath.Join(p.manifestRoot, pathSpec)
	}
	abs, err := filepath.Abs(pathSpec)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: resolve path %q: %w", name, spec.Path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: stat %s: %w", name, abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dependency %q: expected directory at %s", name, abs)
	}

	manifestPath := filepath.Join(abs, driver.ManifestName)
	packManifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: load manifest %s: %w", name, manifestPath, err)
	}

	version := strings.TrimSpace(packManifest.Version)
	if version == "" {
		version = "0.0.0-dev"
	}

	p.logs = append(p.logs, fmt.Sprintf("linked %s %s (%s)", packManifest.Name, version, p.displayPath(abs)))

	return &resolvedPack{
		pack: &driver.LockedPack{
			Name:    packManifest.Name,
			Version: version,
			Source:  driver.PathSource(abs),
		},
		manifest: packManifest,
		root:     abs,
	}, nil
}

func (p *packInstaller) resolveGitPack(name string, spec *driver.DependencySpec) (*resolvedPack, error) {
	if p.git == nil {
		return nil, fmt.Errorf("dependency %q: git support needs a cache directory", name)
	}
	version, commit, err := p.git.Fetch(name, spec)
	if err != nil {
		return nil, err
	}

	checkoutDir := driver.PackCacheDir(p.cacheRoot, name, version)
	manifestPath := filepath.Join(checkoutDir, driver.ManifestName)
	packManifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: load manifest %s: %w", name, manifestPath, err)
	}

	checksum, err := dirChecksum(checkoutDir)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: checksum %s: %w", name, checkoutDir, err)
	}

	p.logs = append(p.logs, fmt.Sprintf("fetched git dependency %s (%s)", packManifest.Name, version))

	return &resolvedPack{
		pack: &driver.LockedPack{
			Name:     packManifest.Name,
			Version:  version,
			Source:   driver.GitSource(spec.Git, commit),
			Checksum: checksum,
		},
		manifest: packManifest,
		root:     checkoutDir,
	}, nil
}

func (p *packInstaller) displayPath(path string) string {
	if p.manifestRoot != "" {
		if rel, err := filepath.Rel(p.manifestRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return path
}

func lockedPackEqual(a, b *driver.LockedPack) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name != b.Name || a.Version != b.Version || a.Source != b.Source || a.Checksum != b.Checksum {
		return false
	}
	if len(a.Dependencies) != len(b.Dependencies) {
		return false
	}
	for i := range a.Dependencies {
		if a.Dependencies[i] != b.Dependencies[i] {
			return false
		}
	}
	return true
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	return strings.ReplaceAll(name, "-", "_")
}

func clonePackSpec(spec *driver.DependencySpec) *driver.DependencySpec {
	if spec == nil {
		return nil
	}
	clone := *spec
	return &clone
}

// gitFetcher clones git dependencies into the pack cache.
type gitFetcher struct {
	cacheRoot string
}

func newGitFetcher(cacheRoot string) *gitFetcher {
	if cacheRoot == "" {
		return nil
	}
	return &gitFetcher{cacheRoot: cacheRoot}
}

// Fetch makes sure a checkout for the spec exists in the cache and returns
// the pinned version label and the resolved commit hash.
func (g *gitFetcher) Fetch(name string, spec *driver.DependencySpec) (string, string, error) {
	url := strings.TrimSpace(spec.Git)
	if url == "" {
		return "", "", fmt.Errorf("dependency %q: git URL required", name)
	}
	return ensureGitCheckout(g.cacheRoot, name, url, spec)
}

func ensureGitCheckout(cacheRoot, name, url string, spec *driver.DependencySpec) (string, string, error) {
	baseDir := filepath.Join(cacheRoot, sanitizeName(name))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}

	revision, descriptor, err := gitRevisionFromSpec(spec)
	if err != nil {
		return "", "", err
	}

	// A pinned rev that is already checked out never needs the network.
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		if _, err := os.Stat(driver.PackCacheDir(cacheRoot, name, rev)); err == nil {
			return rev, rev, nil
		}
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{
		URL:               url,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git clone %s: %w", url, err)
	}

	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	version := gitPinnedVersion(descriptor, hash.String())
	targetDir := driver.PackCacheDir(cacheRoot, name, version)
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
		return version, hash.String(), nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", fmt.Errorf("git checkout %s: %w", revision, err)
	}

	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", "", err
	}
	return version, hash.String(), nil
}

// gitPinnedVersion labels a checkout: the commit alone for rev pins, or
// "<tag-or-branch>@<commit>" so moving refs stay distinguishable.
func gitPinnedVersion(descriptor, commit string) string {
	commit = strings.TrimSpace(commit)
	descriptor = strings.TrimSpace(descriptor)
	if commit == "" {
		return descriptor
	}
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return fmt.Sprintf("%s@%s", descriptor, commit)
}

func gitRevisionFromSpec(spec *driver.DependencySpec) (plumbing.Revision, string, error) {
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		return plumbing.Revision(rev), rev, nil
	}
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), tag, nil
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		return plumbing.Revision("refs/heads/" + branch), branch, nil
	}
	return "", "", fmt.Errorf("git dependencies require rev, tag, or branch")
}

// dirChecksum hashes a checkout's file names and contents, skipping the
// .git directory so the same tree always hashes the same.
func dirChecksum(path string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		h.Write([]byte(filepath.ToSlash(rel)))
		h.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
