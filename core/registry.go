// Package core manages installed cores: game-specific directories holding a
// settings descriptor and the migrations that move city projects between
// core versions. Cores are usually git checkouts.
package core

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"

	"github.com/teranos/citykit/errors"
	"github.com/teranos/citykit/logger"
)

// MigrationsDirName is the directory inside a core holding migration units.
const MigrationsDirName = "migrations"

// revisionLength is how many hex digits of the HEAD commit are shown.
const revisionLength = 8

var (
	// ErrCoreNotFound is returned for a core name with no directory.
	ErrCoreNotFound = errors.New("core not found")
	// ErrCoreExists is returned by Install when the target directory exists.
	ErrCoreExists = errors.New("core already installed")
	// ErrInvalidCoreName is returned for names that are not a single path element.
	ErrInvalidCoreName = errors.New("invalid core name")
	// ErrDirtyCore is returned by Update when the checkout has local changes.
	ErrDirtyCore = errors.New("core has local changes")
)

// Registry resolves cores by name under a single directory.
type Registry struct {
	dir    string
	logger *zap.SugaredLogger
}

// Info summarizes an installed core for listings.
type Info struct {
	Name       string
	Path       string
	Descriptor Descriptor
	// DescriptorErr is set when the settings file is missing or invalid;
	// the core is still listed.
	DescriptorErr error
	Revision      string
	Origin        string
}

// NewRegistry creates a registry over dir. log may be nil.
func NewRegistry(dir string, log *zap.SugaredLogger) *Registry {
	return &Registry{dir: dir, logger: logger.OrNop(log)}
}

// Dir returns the cores directory
func (r *Registry) Dir() string { return r.dir }

// Path returns the directory of core name (which need not exist).
func (r *Registry) Path(name string) string {
	return filepath.Join(r.dir, name)
}

// MigrationsDir returns <core>/migrations
func (r *Registry) MigrationsDir(name string) string {
	return filepath.Join(r.Path(name), MigrationsDirName)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.Wrapf(ErrInvalidCoreName, "%q", name)
	}
	return nil
}

// Exists reports whether core name is installed
func (r *Registry) Exists(name string) bool {
	if validateName(name) != nil {
		return false
	}
	info, err := os.Stat(r.Path(name))
	return err == nil && info.IsDir()
}

// Descriptor loads the settings of core name.
func (r *Registry) Descriptor(name string) (Descriptor, error) {
	if err := validateName(name); err != nil {
		return Descriptor{}, err
	}
	if !r.Exists(name) {
		return Descriptor{}, errors.WithHintf(
			errors.Wrapf(ErrCoreNotFound, "%s", name),
			"install it with: citykit cores add <url> --name %s", name)
	}
	d, err := LoadDescriptor(r.Path(name))
	if err != nil {
		return Descriptor{}, errors.Wrapf(err, "core %s", name)
	}

	r.logger.Debugw("Loaded core descriptor",
		logger.FieldCore, name,
		logger.FieldCoreVersion, d.CoreVersion,
		logger.FieldCoreFeatureVersion, d.CoreFeatureVersion)
	return d, nil
}

// List returns every installed core, sorted by name. A missing cores
// directory yields an empty list.
func (r *Registry) List() ([]Info, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read cores directory %s", r.dir)
	}

	var infos []Info
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := e.Name()
		info := Info{
			Name:     name,
			Path:     r.Path(name),
			Revision: r.Revision(name),
			Origin:   r.Origin(name),
		}
		info.Descriptor, info.DescriptorErr = LoadDescriptor(info.Path)
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// InstallOption configures Install and Update
type InstallOption func(*installOptions)

type installOptions struct {
	auth transport.AuthMethod
}

// WithBasicAuth authenticates HTTPS remotes with a username and token
func WithBasicAuth(username, token string) InstallOption {
	return func(o *installOptions) {
		o.auth = &githttp.BasicAuth{Username: username, Password: token}
	}
}

// Install clones url (with submodules) into the cores directory as name.
// An empty name is derived from the URL. A failed clone leaves nothing
// behind.
func (r *Registry) Install(ctx context.Context, name, url string, opts ...InstallOption) (*Info, error) {
	var o installOptions
	for _, opt := range opts {
		opt(&o)
	}

	if name == "" {
		name = NameFromURL(url)
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	path := r.Path(name)
	if _, err := os.Stat(path); err == nil {
		return nil, errors.WithHint(
			errors.Wrapf(ErrCoreExists, "%s", path),
			"use citykit cores update to pull new revisions")
	}
	if err := os.MkdirAll(r.dir, 0750); err != nil {
		return nil, errors.Wrapf(err, "create cores directory %s", r.dir)
	}

	cloneURL := NormalizeRepoURL(url)
	r.logger.Infow("Installing core",
		logger.FieldCore, name,
		logger.FieldURL, cloneURL,
		logger.FieldPath, path)

	_, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:               cloneURL,
		Auth:              o.auth,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if err != nil {
		os.RemoveAll(path)
		wrapped := errors.Wrapf(err, "clone %s", cloneURL)
		if errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed) {
			wrapped = errors.WithHint(wrapped, "pass --username and --token for private repositories")
		}
		return nil, wrapped
	}

	info := &Info{
		Name:     name,
		Path:     path,
		Revision: r.Revision(name),
		Origin:   r.Origin(name),
	}
	info.Descriptor, info.DescriptorErr = LoadDescriptor(path)
	if info.DescriptorErr != nil {
		r.logger.Warnw("Installed core has no usable descriptor",
			logger.FieldCore, name,
			logger.FieldError, info.DescriptorErr)
	}
	return info, nil
}

// Update fast-forwards core name from its origin. It reports whether new
// commits were applied. Cores with local changes are left alone.
func (r *Registry) Update(ctx context.Context, name string, opts ...InstallOption) (bool, error) {
	var o installOptions
	for _, opt := range opts {
		opt(&o)
	}

	repo, err := r.open(name)
	if err != nil {
		return false, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, errors.Wrapf(err, "core %s worktree", name)
	}

	dirty, err := r.Dirty(name)
	if err != nil {
		return false, err
	}
	if dirty {
		return false, errors.WithHint(errors.Wrapf(ErrDirtyCore, "%s", name),
			"commit or discard changes in the core directory first")
	}

	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:        "origin",
		Auth:              o.auth,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "pull core %s", name)
	}

	r.logger.Infow("Updated core",
		logger.FieldCore, name,
		logger.FieldVersion, r.Revision(name))
	return true, nil
}

// Dirty reports whether core name has uncommitted or untracked changes.
func (r *Registry) Dirty(name string) (bool, error) {
	repo, err := r.open(name)
	if err != nil {
		return false, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, errors.Wrapf(err, "core %s worktree", name)
	}
	status, err := wt.Status()
	if err != nil {
		return false, errors.Wrapf(err, "core %s status", name)
	}
	return !status.IsClean(), nil
}

// Uninstall removes core name from disk.
func (r *Registry) Uninstall(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if !r.Exists(name) {
		return errors.Wrapf(ErrCoreNotFound, "%s", name)
	}
	if err := os.RemoveAll(r.Path(name)); err != nil {
		return errors.Wrapf(err, "remove core %s", name)
	}
	r.logger.Infow("Uninstalled core", logger.FieldCore, name)
	return nil
}

// Revision describes the installed revision of core name:
// "<version> (rev <8 hex>)", "rev <8 hex>", the descriptor version when the
// core is not a git checkout, or "unavailable".
func (r *Registry) Revision(name string) string {
	version := ""
	if d, err := LoadDescriptor(r.Path(name)); err == nil {
		version = d.Version
	}

	rev := ""
	if repo, err := r.open(name); err == nil {
		if head, err := repo.Head(); err == nil {
			rev = head.Hash().String()[:revisionLength]
		}
	}

	switch {
	case rev != "" && version != "":
		return version + " (rev " + rev + ")"
	case rev != "":
		return "rev " + rev
	case version != "":
		return version
	default:
		return "unavailable"
	}
}

// Origin returns the URL of the core's origin remote, or "".
func (r *Registry) Origin(name string) string {
	repo, err := r.open(name)
	if err != nil {
		return ""
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return ""
	}
	if urls := remote.Config().URLs; len(urls) > 0 {
		return urls[0]
	}
	return ""
}

func (r *Registry) open(name string) (*git.Repository, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if !r.Exists(name) {
		return nil, errors.Wrapf(ErrCoreNotFound, "%s", name)
	}
	repo, err := git.PlainOpen(r.Path(name))
	if err != nil {
		return nil, errors.Wrapf(err, "core %s is not a git checkout", name)
	}
	return repo, nil
}
