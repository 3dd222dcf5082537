package processor

import (
	"context"
	"os"
	"path"

	"github.com/spf13/afero"

	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/util"
)

// VFS mounts a virtual directory tree as the application filesystem root.
// Mappings and empty values are directories, scalars are file contents.
//
//	vfs:
//	  media:
//	    import:
//	      products.csv: "sku,name\nABC,Shirt\n"
//
// In local scope the tree is merged over the tree the shared fixture
// mounted. Discard pops back to the previous root.
type VFS struct {
	base
}

// NewVFS creates the vfs processor.
func NewVFS(app *framework.App, log *logger.Logger) *VFS {
	return &VFS{base: newBase(app, KindVFS, log)}
}

// mountedTree is the storage record of a vfs apply.
type mountedTree struct {
	tree *fixture.Map
	prev afero.Fs
}

// Apply mounts a fresh in-memory root holding the tree merged over the
// shared one.
func (p *VFS) Apply(_ context.Context, data any, kind string, f fixture.Fixture) error {
	if err := p.claim(f); err != nil {
		return err
	}
	tree, err := asMap(kind, data)
	if err != nil {
		return err
	}
	merged := tree.Clone()
	if shared, ok := p.shared(f).(*mountedTree); ok {
		merged = shared.tree.Clone()
		merged.Merge(tree)
	}

	fs := afero.NewMemMapFs()
	if err := writeTree(fs, "/", merged); err != nil {
		return err
	}
	f.SetStorageData(p.key, &mountedTree{tree: merged, prev: p.app.FS()})
	f.PushFS(fs)
	p.app.SetFS(fs)
	p.log.Debug("vfs mounted", logger.Fields(logger.FieldScope, string(f.Scope()), "entries", merged.Len()))
	return nil
}

// Discard unmounts the root.
func (p *VFS) Discard(_ context.Context, _ any, _ string, f fixture.Fixture) error {
	mounted, ok := f.StorageData(p.key).(*mountedTree)
	if !ok {
		return nil
	}
	f.SetStorageData(p.key, nil)
	f.PopFS()
	p.app.SetFS(mounted.prev)
	return nil
}

func writeTree(fs afero.Fs, dir string, tree *fixture.Map) error {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, name := range tree.Keys() {
		if name == "" || name == "." || name == ".." || path.Base(name) != name {
			return apperrors.InvalidInput(KindVFS, "invalid entry name "+name+" in "+dir)
		}
		p := path.Join(dir, name)
		if tree.Value(name) == nil {
			if err := fs.MkdirAll(p, 0o755); err != nil {
				return err
			}
			continue
		}
		if sub, ok := fixture.AsMap(tree.Value(name)); ok {
			if err := writeTree(fs, p, sub); err != nil {
				return err
			}
			continue
		}
		if err := afero.WriteFile(fs, p, []byte(util.String(tree.Value(name))), os.FileMode(0o644)); err != nil {
			return err
		}
	}
	return nil
}
