package plan

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
)

func TestGeometryArgRoundTrip(t *testing.T) {
	pt := orb.Point{37.62, 55.75}

	lit, err := GeometryArg(pt)
	if err != nil {
		t.Fatalf("GeometryArg failed: %v", err)
	}

	g, err := DecodeGeometryArg(lit)
	if err != nil {
		t.Fatalf("DecodeGeometryArg failed: %v", err)
	}

	got, ok := g.(orb.Point)
	if !ok {
		t.Fatalf("Expected point, got %T", g)
	}
	if !got.Equal(pt) {
		t.Errorf("Round trip changed the point: %v -> %v", pt, got)
	}
}

func TestGeometryArgAsNamedArgument(t *testing.T) {
	lit, err := GeometryArg(orb.Point{1, 2})
	if err != nil {
		t.Fatal(err)
	}

	p, err := SQL("SELECT ST_GeomFromHEXWKB(:pt)", map[string]string{"pt": lit})
	if err != nil {
		t.Fatalf("Expected geometry literal to bind, got: %v", err)
	}
	if p.SQL.Args["pt"] != lit {
		t.Error("Geometry literal changed while binding")
	}
}

func TestGeometryArgValidation(t *testing.T) {
	if _, err := GeometryArg(nil); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("Expected ErrInvalidOperation for nil geometry, got: %v", err)
	}
	if _, err := DecodeGeometryArg(""); !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("Expected ErrInvalidOperation for empty literal, got: %v", err)
	}
	if _, err := DecodeGeometryArg("zz"); err == nil {
		t.Fatal("Expected error for non-hex literal")
	}
}
