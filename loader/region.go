package loader

import (
	"fmt"

	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/types"
)

var allDirections = []types.Direction{types.Down, types.Left, types.Right, types.Up}

// ExtractRegionProperties builds movement rules from tile or object custom
// properties. Only enter_from, exit_from, endure and key are read; when none
// is present the result is nil.
//
// A region with exits but no explicit entries may be entered from every
// side except its exits. The "slide" key opens and endures all four sides.
func ExtractRegionProperties(props map[string]string) (*types.RegionProperties, error) {
	var (
		rp    types.RegionProperties
		found bool
		err   error
	)
	if v, ok := props["enter_from"]; ok {
		found = true
		if rp.EnterFrom, err = grid.ParseDirections(v); err != nil {
			return nil, fmt.Errorf("enter_from: %w", err)
		}
	}
	if v, ok := props["exit_from"]; ok {
		found = true
		if rp.ExitFrom, err = grid.ParseDirections(v); err != nil {
			return nil, fmt.Errorf("exit_from: %w", err)
		}
	}
	if v, ok := props["endure"]; ok {
		found = true
		if rp.Endure, err = grid.ParseDirections(v); err != nil {
			return nil, fmt.Errorf("endure: %w", err)
		}
	}
	if v, ok := props["key"]; ok {
		found = true
		rp.Key = v
	}
	if !found {
		return nil, nil
	}

	if len(rp.ExitFrom) > 0 && len(rp.EnterFrom) == 0 {
		for _, d := range allDirections {
			if !grid.Contains(rp.ExitFrom, d) {
				rp.EnterFrom = append(rp.EnterFrom, d)
			}
		}
	}
	if rp.Key == "slide" {
		rp.EnterFrom = append([]types.Direction(nil), allDirections...)
		rp.ExitFrom = append([]types.Direction(nil), allDirections...)
		rp.Endure = append([]types.Direction(nil), allDirections...)
	}
	return &rp, nil
}
