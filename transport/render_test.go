package transport

import (
	"errors"
	"testing"

	"github.com/hugr-lab/runway-go/plan"
)

func mustPlan(t *testing.T, p *plan.Plan, err error) *plan.Plan {
	t.Helper()
	if err != nil {
		t.Fatalf("plan build failed: %v", err)
	}
	return p
}

func TestRenderTable(t *testing.T) {
	tests := []struct {
		name  string
		table string
		want  string
	}{
		{"unqualified", "users", `SELECT * FROM "users"`},
		{"qualified", "main.users", `SELECT * FROM "main"."users"`},
		{"quote in name", `we"ird`, `SELECT * FROM "we""ird"`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tp, terr := plan.Table(tc.table)
			p := mustPlan(t, tp, terr)
			got, err := renderPlan(p)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("renderPlan = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRenderRange(t *testing.T) {
	rp, rerr := plan.Range(0, 10, 2, 0)
	p := mustPlan(t, rp, rerr)
	got, err := renderPlan(p)
	if err != nil {
		t.Fatal(err)
	}
	want := `SELECT "range" AS id FROM range(0, 10, 2)`
	if got != want {
		t.Errorf("renderPlan = %q, want %q", got, want)
	}

	// start == end renders a well-formed statement that evaluates empty.
	rp, rerr = plan.Range(0, 0, 1, 0)
	p = mustPlan(t, rp, rerr)
	if _, err := renderPlan(p); err != nil {
		t.Errorf("Empty range must render, got error: %v", err)
	}
}

func TestRenderSQLArgs(t *testing.T) {
	sp, serr := plan.SQL("SELECT * FROM t WHERE id = :id AND parent = :id2",
		map[string]string{"id": "4", "id2": "o'brien"})
	p := mustPlan(t, sp, serr)

	got, err := renderPlan(p)
	if err != nil {
		t.Fatal(err)
	}
	want := `SELECT * FROM t WHERE id = '4' AND parent = 'o''brien'`
	if got != want {
		t.Errorf("renderPlan = %q, want %q", got, want)
	}
}

func TestRenderCommandPassthrough(t *testing.T) {
	cp, cerr := plan.Command("CREATE TABLE t (id BIGINT)")
	p := mustPlan(t, cp, cerr)
	got, err := renderPlan(p)
	if err != nil {
		t.Fatal(err)
	}
	if got != "CREATE TABLE t (id BIGINT)" {
		t.Errorf("Command statement changed: %q", got)
	}
}

func TestRenderRejectsInvalidPlan(t *testing.T) {
	bad := &plan.Plan{Root: plan.KindRange, Range: &plan.RangeNode{Step: 0}}
	if _, err := renderPlan(bad); !errors.Is(err, plan.ErrInvalidOperation) {
		t.Fatalf("Expected ErrInvalidOperation, got: %v", err)
	}
}
