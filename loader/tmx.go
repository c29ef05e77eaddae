package loader

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/lafriks/go-tiled"

	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/engine/tilemap"
	"github.com/nathoo/tilecore/types"
)

// tileInfo is what the loader needs from one tileset tile, extracted once
// per tile and applied to every cell that uses it.
type tileInfo struct {
	region    *types.RegionProperties
	colliders []*tiled.Object
	surfable  bool
}

// propertyMap flattens Tiled custom properties. Later duplicates win.
func propertyMap(p tiled.Properties) map[string]string {
	out := make(map[string]string, len(p))
	for _, prop := range p {
		out[prop.Name] = prop.Value
	}
	return out
}

// objectType returns the object's class, falling back to the legacy type
// attribute.
func objectType(o *tiled.Object) string {
	if o.Class != "" {
		return strings.ToLower(o.Class)
	}
	return strings.ToLower(o.Type)
}

// objectRect returns the pixel bounding box of o. Polygons report their
// point extent; rectangles their size.
func objectRect(o *tiled.Object, origin image.Point) image.Rectangle {
	x, y := origin.X+round(o.X), origin.Y+round(o.Y)
	if len(o.Polygons) > 0 && o.Polygons[0].Points != nil {
		pts := absolutePoints(o, *o.Polygons[0].Points, origin)
		r := image.Rectangle{Min: pts[0], Max: pts[0]}
		for _, p := range pts[1:] {
			r = r.Union(image.Rectangle{Min: p, Max: p})
		}
		return r
	}
	return image.Rect(x, y, x+round(o.Width), y+round(o.Height))
}

// absolutePoints converts object-relative points to map pixels.
func absolutePoints(o *tiled.Object, pts tiled.Points, origin image.Point) []image.Point {
	out := make([]image.Point, 0, len(pts))
	for _, p := range pts {
		out = append(out, image.Pt(origin.X+round(o.X+p.X), origin.Y+round(o.Y+p.Y)))
	}
	return out
}

func round(f float64) int { return int(math.Round(f)) }

// polyline returns the points of o's first open polyline, if it has one.
func polyline(o *tiled.Object, origin image.Point) ([]image.Point, bool) {
	if len(o.PolyLines) == 0 || o.PolyLines[0].Points == nil {
		return nil, false
	}
	return absolutePoints(o, *o.PolyLines[0].Points, origin), true
}

// builder accumulates a Map from a parsed document.
type builder struct {
	doc   *tiled.Map
	m     *tilemap.Map
	size  image.Point // native tile size in pixels
	tiles map[uint32]*tileInfo
}

func (b *builder) build() error {
	// 1. Pre-extract tileset tiles.
	if err := b.indexTilesets(); err != nil {
		return err
	}

	// 2. Tile layers.
	for _, layer := range b.doc.Layers {
		if !layer.Visible {
			continue
		}
		if err := b.applyLayer(layer); err != nil {
			return fmt.Errorf("layer %q: %w", layer.Name, err)
		}
	}

	// 3. Freestanding objects.
	for _, group := range b.doc.ObjectGroups {
		for _, o := range group.Objects {
			if err := b.applyObject(o); err != nil {
				return fmt.Errorf("object %d (%s): %w", o.ID, o.Name, err)
			}
		}
	}
	return nil
}

func (b *builder) indexTilesets() error {
	b.tiles = make(map[uint32]*tileInfo)
	for _, ts := range b.doc.Tilesets {
		for _, t := range ts.Tiles {
			props := propertyMap(t.Properties)
			region, err := ExtractRegionProperties(props)
			if err != nil {
				return fmt.Errorf("tileset %q tile %d: %w", ts.Name, t.ID, err)
			}
			info := &tileInfo{region: region}
			info.surfable, _ = strconv.ParseBool(props["surfable"])
			for _, og := range t.ObjectGroups {
				for _, o := range og.Objects {
					if objectType(o) == "collider" {
						info.colliders = append(info.colliders, o)
					}
				}
			}
			if info.region != nil || info.surfable || len(info.colliders) > 0 {
				b.tiles[ts.FirstGID+t.ID] = info
			}
		}
	}
	return nil
}

func (b *builder) applyLayer(layer *tiled.Layer) error {
	for i, lt := range layer.Tiles {
		if lt == nil || lt.IsNil() || lt.Tileset == nil {
			continue
		}
		info, ok := b.tiles[lt.Tileset.FirstGID+lt.ID]
		if !ok {
			continue
		}
		cell := types.Tile{X: i % b.doc.Width, Y: i / b.doc.Width}
		origin := image.Pt(cell.X*b.size.X, cell.Y*b.size.Y)

		if info.region != nil {
			b.m.SetRegion(cell, info.region)
		}
		if info.surfable {
			b.m.SetSurface(cell, "surfable")
		}
		for _, c := range info.colliders {
			if pts, open := polyline(c, origin); open {
				if err := b.addLine(pts); err != nil {
					return err
				}
				continue
			}
			if err := b.blockRect(objectRect(c, origin), nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *builder) applyObject(o *tiled.Object) error {
	typ := objectType(o)
	switch {
	case typ == "collision-line":
		pts, ok := polyline(o, image.Point{})
		if !ok {
			return fmt.Errorf("collision-line without a polyline")
		}
		return b.addLine(pts)

	case strings.HasPrefix(typ, "collision"):
		if pts, open := polyline(o, image.Point{}); open {
			return b.addLine(pts)
		}
		region, err := ExtractRegionProperties(propertyMap(o.Properties))
		if err != nil {
			return err
		}
		return b.blockRect(objectRect(o, image.Point{}), region)

	case typ == "surfable":
		tiles, err := grid.TilesInsideRect(grid.SnapRect(objectRect(o, image.Point{}), b.size), b.size)
		if err != nil {
			return err
		}
		for _, t := range tiles {
			b.m.SetSurface(t, "surfable")
		}
		return nil

	case typ == "event", typ == "init", typ == "interact":
		zone := grid.SnapRectToTiles(objectRect(o, image.Point{}), b.size)
		ev, err := newEvent(strconv.FormatUint(uint64(o.ID), 10), o.Name, typ,
			zone.Min.X, zone.Min.Y, zone.Dx(), zone.Dy(), propertyMap(o.Properties))
		if err != nil {
			return err
		}
		return addEvent(b.m, ev)
	}

	// Open polylines of any other type still wall off movement.
	if pts, open := polyline(o, image.Point{}); open && typ == "" {
		return b.addLine(pts)
	}
	return nil
}

// blockRect snaps r to the grid and marks every covered tile. A nil region
// blocks the tiles outright.
func (b *builder) blockRect(r image.Rectangle, region *types.RegionProperties) error {
	tiles, err := grid.TilesInsideRect(grid.SnapRect(r, b.size), b.size)
	if err != nil {
		return err
	}
	for _, t := range tiles {
		if region != nil {
			b.m.SetRegion(t, region)
		} else {
			b.m.Block(t)
		}
	}
	return nil
}

func (b *builder) addLine(pts []image.Point) error {
	lines, err := grid.LineCollisions(pts, b.size)
	if err != nil {
		return err
	}
	b.m.AddLines(lines...)
	return nil
}
