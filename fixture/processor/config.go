package processor

import (
	"context"
	"strings"

	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/fixture"
	"github.com/kbukum/fixturekit/framework"
	"github.com/kbukum/fixturekit/logger"
	"github.com/kbukum/fixturekit/util"
)

// Config overrides configuration nodes. Keys are node paths; nested
// mappings are joined with "/".
//
//	config:
//	  default/web/unsecure/base_url: http://shop.test
//	  stores/default:
//	    general/locale/code: de_DE
//
// Values at paths with a declared backend model go through its BeforeSave
// first. The configuration is snapshotted before the first change and
// restored on discard.
type Config struct {
	base
	snapshots ConfigScope
	xml       bool
}

// NewConfig creates the scalar config processor.
func NewConfig(app *framework.App, snapshots ConfigScope, log *logger.Logger) *Config {
	return &Config{base: newBase(app, KindConfig, log), snapshots: snapshots}
}

// NewConfigXML creates the raw XML config processor. Keys are the node
// paths the XML fragments merge into; an empty path or "/" merges a whole
// document.
//
//	config_xml:
//	  default/catalog: <seo><product_url_suffix>.html</product_url_suffix></seo>
func NewConfigXML(app *framework.App, snapshots ConfigScope, log *logger.Logger) *Config {
	return &Config{base: newBase(app, KindConfigXML, log), snapshots: snapshots, xml: true}
}

// Apply snapshots the configuration and writes the fixture values over it.
func (p *Config) Apply(ctx context.Context, data any, kind string, f fixture.Fixture) error {
	if err := p.claim(f); err != nil {
		return err
	}
	nodes, err := asMap(kind, data)
	if err != nil {
		return err
	}
	if p.snapshots == nil {
		return apperrors.Configuration(kind + " fixtures need a config snapshot stack")
	}
	p.snapshots.SaveScopeSnapshot()
	f.SetStorageData(p.key, nodes.Clone())

	cfg := p.app.Config()
	if p.xml {
		for _, path := range nodes.Keys() {
			if err := cfg.MergeXMLAt(strings.Trim(path, "/"), strings.NewReader(util.String(nodes.Value(path)))); err != nil {
				return apperrors.InvalidInput(path, err.Error())
			}
		}
	} else {
		values := map[string]string{}
		var order []string
		flatten("", nodes, values, &order)
		for _, path := range order {
			value, err := p.beforeSave(ctx, path, values[path])
			if err != nil {
				return err
			}
			cfg.SetNode(path, value)
		}
	}
	p.app.Stores().ResetConfigCache()
	p.log.Debug("config applied", logger.Fields("nodes", nodes.Len(), logger.FieldScope, string(f.Scope())))
	return nil
}

func (p *Config) beforeSave(ctx context.Context, path, value string) (string, error) {
	alias, ok := p.app.Config().Backend(framework.ConfigFieldPath(path))
	if !ok {
		return value, nil
	}
	backend, err := p.app.Models().Backend(alias)
	if err != nil {
		return "", err
	}
	v := &framework.ConfigValue{Path: path, Value: value}
	if err := backend.BeforeSave(ctx, v); err != nil {
		return "", apperrors.InvalidInput(path, err.Error()).WithCause(err)
	}
	return v.Value, nil
}

// Discard rolls the configuration back to the snapshot.
func (p *Config) Discard(_ context.Context, _ any, _ string, f fixture.Fixture) error {
	if f.StorageData(p.key) == nil {
		return nil
	}
	f.SetStorageData(p.key, nil)
	if err := p.snapshots.LoadScopeSnapshot(); err != nil {
		return err
	}
	p.snapshots.FlushScopeSnapshot()
	p.app.Stores().ResetConfigCache()
	return nil
}

func flatten(prefix string, m *fixture.Map, out map[string]string, order *[]string) {
	for _, k := range m.Keys() {
		path := strings.Trim(k, "/")
		if prefix != "" {
			path = prefix + "/" + path
		}
		if child, ok := fixture.AsMap(m.Value(k)); ok {
			flatten(path, child, out, order)
			continue
		}
		if _, seen := out[path]; !seen {
			*order = append(*order, path)
		}
		out[path] = util.String(m.Value(k))
	}
}
