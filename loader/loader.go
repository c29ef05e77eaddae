// Package loader builds tilemap.Map values from Tiled TMX documents and
// supplementary YAML script files.
package loader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lafriks/go-tiled"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/observe"
)

// Options tune a load.
type Options struct {
	// TileSize overrides the rendered tile size. Collision math always uses
	// the document's native tile size.
	TileSize image.Point
	// ScriptPath names a script document to merge. When empty the loader
	// looks for a sibling "<map>.yaml".
	ScriptPath string
	Log        *zap.Logger
}

// Load parses the TMX document at path into a Map. Any error aborts the load;
// no partial map is returned.
func Load(path string, opts Options) (*tilemap.Map, error) {
	log := observe.OrNop(opts.Log)

	doc, err := tiled.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc.TileWidth <= 0 || doc.TileHeight <= 0 {
		return nil, fmt.Errorf("%s: invalid tile size %dx%d", path, doc.TileWidth, doc.TileHeight)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	m := tilemap.New(name, doc.Width, doc.Height)
	m.Filename = path
	m.Document = doc
	m.Properties = map[string]string{}
	if doc.Properties != nil {
		m.Properties = propertyMap(*doc.Properties)
	}

	b := &builder{doc: doc, m: m, size: image.Pt(doc.TileWidth, doc.TileHeight)}
	if err := b.build(); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	m.TileSize = b.size
	if opts.TileSize.X > 0 && opts.TileSize.Y > 0 {
		m.TileSize = opts.TileSize
	}

	if err := mergeScript(path, opts.ScriptPath, m); err != nil {
		return nil, err
	}

	log.Info("map loaded",
		zap.String("map", m.Name),
		zap.Int("width", m.Width),
		zap.Int("height", m.Height),
		zap.Int("events", len(m.Events)),
		zap.Int("inits", len(m.Inits)),
		zap.Int("interacts", len(m.Interacts)),
		zap.Int("blocked", len(m.Collision)),
	)
	return m, nil
}

// mergeScript merges the explicit script, or the sibling one if it exists.
func mergeScript(mapPath, explicit string, m *tilemap.Map) error {
	if explicit != "" {
		return LoadScript(explicit, m)
	}
	sibling := strings.TrimSuffix(mapPath, filepath.Ext(mapPath)) + ".yaml"
	if _, err := os.Stat(sibling); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("checking script %s: %w", sibling, err)
	}
	return LoadScript(sibling, m)
}

// LoadAll loads every path concurrently. The first error cancels the rest.
// Results are returned in the order of paths.
func LoadAll(ctx context.Context, paths []string, opts Options) ([]*tilemap.Map, error) {
	maps := make([]*tilemap.Map, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			m, err := Load(p, Options{TileSize: opts.TileSize, Log: opts.Log})
			if err != nil {
				return err
			}
			maps[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return maps, nil
}

// Dir resolves map names against a directory of TMX files.
type Dir struct {
	Root string
	Opts Options
}

// LoadMap implements session.MapLoader. The name may carry a .tmx suffix.
func (d Dir) LoadMap(name string) (*tilemap.Map, error) {
	if !strings.HasSuffix(name, ".tmx") {
		name += ".tmx"
	}
	opts := d.Opts
	opts.ScriptPath = ""
	return Load(filepath.Join(d.Root, name), opts)
}
