// Package classpath resolves the dependency set of a workspace: it collects
// the runtime and test classpath entries of every project, drops entries
// that do not exist, deduplicates them by absolute path and classifies each
// one as an internal output directory or an external archive.
package classpath

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/shinji-kodama/export-jar/internal/model"
)

// Source is the part of the project model the resolver queries.
type Source interface {
	Classpaths(ctx context.Context, projectID string, scope model.Scope) (model.ClasspathResult, error)
}

// ExistsFunc reports whether a path exists on disk.
type ExistsFunc func(path string) bool

// PathExists is the default ExistsFunc.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// queryScopes are queried per project in this order. The first scope to
// report a path decides its scope and pre-selection.
var queryScopes = []model.Scope{model.ScopeRuntime, model.ScopeTest}

// Resolver turns project roots into a deduplicated list of DependencyItems.
type Resolver struct {
	source Source
	exists ExistsFunc
	logger *log.Logger
}

// NewResolver creates a Resolver. A nil exists uses PathExists; a nil
// logger discards log output.
func NewResolver(source Source, exists ExistsFunc, logger *log.Logger) *Resolver {
	if exists == nil {
		exists = PathExists
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Resolver{source: source, exists: exists, logger: logger}
}

// Resolve queries every project for both scopes and returns the resolved
// items in discovery order (project order, runtime before test, classpaths
// before modulepaths). The queries run concurrently; the merge does not.
//
// An empty result is not an error here; callers decide what it means.
func (r *Resolver) Resolve(ctx context.Context, workspaceRoot string, projects []model.ProjectRef) ([]model.DependencyItem, error) {
	results := make([][]model.ClasspathResult, len(projects))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range projects {
		results[i] = make([]model.ClasspathResult, len(queryScopes))
		for j, scope := range queryScopes {
			g.Go(func() error {
				res, err := r.source.Classpaths(gctx, p.ID, scope)
				if err != nil {
					return err
				}
				results[i][j] = res
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var items []model.DependencyItem
	for i := range projects {
		for j, scope := range queryScopes {
			res := results[i][j]
			items = r.collect(items, seen, workspaceRoot, res.Classpaths, scope)
			items = r.collect(items, seen, workspaceRoot, res.Modulepaths, scope)
		}
	}
	return items, nil
}

// collect appends the existing, not yet seen entries of paths to items.
func (r *Resolver) collect(items []model.DependencyItem, seen map[string]bool, workspaceRoot string, paths []string, scope model.Scope) []model.DependencyItem {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			r.logger.Debug("skipping unresolvable classpath entry", "path", p, "err", err)
			continue
		}
		if seen[abs] {
			continue
		}
		if !r.exists(abs) {
			r.logger.Debug("skipping missing classpath entry", "path", abs, "scope", scope)
			continue
		}
		seen[abs] = true
		items = append(items, NewItem(workspaceRoot, abs, scope))
	}
	return items
}

// NewItem classifies one existing entry discovered under scope.
func NewItem(workspaceRoot, absPath string, scope model.Scope) model.DependencyItem {
	return model.DependencyItem{
		Label:        Label(workspaceRoot, absPath),
		Scope:        scope,
		Kind:         KindOf(absPath),
		AbsolutePath: absPath,
		Preselected:  scope == model.ScopeRuntime,
	}
}

// KindOf classifies a path by its extension.
func KindOf(path string) model.Kind {
	if strings.EqualFold(filepath.Ext(path), model.ArchiveExt) {
		return model.KindExternal
	}
	return model.KindInternal
}

// Label returns path relative to workspaceRoot when it lies under it,
// otherwise its base name.
func Label(workspaceRoot, path string) string {
	if workspaceRoot != "" {
		if rel, ok := within(workspaceRoot, path); ok {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(path)
}

// within reports whether path is strictly inside root, and the relative path.
func within(root, path string) (string, bool) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// SortItems orders items for presentation: by scope label, then external
// before internal, then by label. The sort is stable.
func SortItems(items []model.DependencyItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(items[i], items[j])
	})
}

// Less is the strict order used by SortItems. Items outside the workspace
// can share a label, so the absolute path breaks the last tie.
func Less(a, b model.DependencyItem) bool {
	if sa, sb := a.Scope.Label(), b.Scope.Label(); sa != sb {
		return sa < sb
	}
	if a.Kind != b.Kind {
		return a.Kind == model.KindExternal
	}
	if a.Label != b.Label {
		return a.Label < b.Label
	}
	return a.AbsolutePath < b.AbsolutePath
}
