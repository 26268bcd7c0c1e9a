package plan

import (
	"encoding/hex"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// Geometry argument support. Remote executors built on the DuckDB spatial
// extension accept geometry literals as WKB hex strings; GeometryArg encodes
// an orb geometry into that form so it can be bound as a named argument.

// GeometryArg encodes a geometry as a WKB hex literal suitable for a named
// argument value. The executor side decodes it with ST_GeomFromHEXWKB (or
// equivalent).
//
// Example:
//
//	pt, _ := plan.GeometryArg(orb.Point{37.62, 55.75})
//	p, _ := plan.SQL("SELECT * FROM cities WHERE ST_Contains(area, ST_GeomFromHEXWKB(:pt))",
//	    map[string]string{"pt": pt})
func GeometryArg(g orb.Geometry) (string, error) {
	if g == nil {
		return "", fmt.Errorf("%w: geometry cannot be nil", ErrInvalidOperation)
	}

	data, err := wkb.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("failed to encode geometry: %w", err)
	}

	return hex.EncodeToString(data), nil
}

// DecodeGeometryArg parses a WKB hex literal back into a geometry.
// Used by executor-side code and tests to round-trip argument values.
func DecodeGeometryArg(s string) (orb.Geometry, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: geometry literal cannot be empty", ErrInvalidOperation)
	}

	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid geometry literal: %w", err)
	}

	g, err := wkb.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode geometry: %w", err)
	}

	return g, nil
}
