package events

import (
	"fmt"
	"strconv"

	"github.com/nathoo/tilecore/engine/grid"
	"github.com/nathoo/tilecore/types"
)

// Params reads positional action parameters with type coercion. The first
// failure is kept and reported by Err; later reads return zero values.
// An empty string counts as an omitted optional parameter.
type Params struct {
	args []string
	err  error
}

// NewParams wraps raw parameters.
func NewParams(args []string) *Params {
	return &Params{args: args}
}

// Len returns the number of parameters given.
func (p *Params) Len() int { return len(p.args) }

// Err returns the first error, wrapping ErrBadParams.
func (p *Params) Err() error { return p.err }

func (p *Params) fail(format string, a ...any) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), ErrBadParams)
	}
}

func (p *Params) raw(i int) (string, bool) {
	if i >= len(p.args) || p.args[i] == "" {
		return "", false
	}
	return p.args[i], true
}

// Max fails if more than n parameters were given.
func (p *Params) Max(n int) {
	if len(p.args) > n {
		p.fail("expected at most %d parameters, got %d", n, len(p.args))
	}
}

// String returns required parameter i.
func (p *Params) String(i int) string {
	s, ok := p.raw(i)
	if !ok {
		p.fail("missing parameter %d", i+1)
	}
	return s
}

// OptString returns parameter i or def.
func (p *Params) OptString(i int, def string) string {
	if s, ok := p.raw(i); ok {
		return s
	}
	return def
}

// Int returns required integer parameter i.
func (p *Params) Int(i int) int {
	s, ok := p.raw(i)
	if !ok {
		p.fail("missing parameter %d", i+1)
		return 0
	}
	return p.parseInt(i, s)
}

// OptInt returns integer parameter i or def.
func (p *Params) OptInt(i, def int) int {
	s, ok := p.raw(i)
	if !ok {
		return def
	}
	return p.parseInt(i, s)
}

func (p *Params) parseInt(i int, s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		p.fail("parameter %d: %q is not an integer", i+1, s)
	}
	return n
}

// Float returns required numeric parameter i.
func (p *Params) Float(i int) float64 {
	s, ok := p.raw(i)
	if !ok {
		p.fail("missing parameter %d", i+1)
		return 0
	}
	return p.parseFloat(i, s)
}

// OptFloat returns numeric parameter i or def.
func (p *Params) OptFloat(i int, def float64) float64 {
	s, ok := p.raw(i)
	if !ok {
		return def
	}
	return p.parseFloat(i, s)
}

func (p *Params) parseFloat(i int, s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail("parameter %d: %q is not a number", i+1, s)
	}
	return f
}

// Direction returns required direction parameter i.
func (p *Params) Direction(i int) types.Direction {
	s, ok := p.raw(i)
	if !ok {
		p.fail("missing parameter %d", i+1)
		return ""
	}
	d, err := grid.ParseDirection(s)
	if err != nil {
		p.fail("parameter %d: %v", i+1, err)
	}
	return d
}

// Rest returns parameters from i on.
func (p *Params) Rest(i int) []string {
	if i >= len(p.args) {
		return nil
	}
	return p.args[i:]
}
