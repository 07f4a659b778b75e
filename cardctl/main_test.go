package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"cardmass/domain"
	"cardmass/grid"
)

const weekBoard = `id: week
slug: week
rows: 3
cols: 3
areas:
  - label: Todo
    color: "#ffcc00"
    tiles:
      - {row: 0, col: 0}
      - {row: 0, col: 1}
      - {row: 0, col: 2}
  - label: Doing
    color: "#00ccff"
    tiles:
      - {row: 1, col: 0}
      - {row: 2, col: 0}
  - label: Done
    color: "#222222"
    textBlack: false
    tiles:
      - {row: 1, col: 2}
      - {row: 2, col: 2}
`

func writeBoard(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "board.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write board: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCompileJSON(t *testing.T) {
	path := writeBoard(t, weekBoard)
	out, err := run(t, "compile", path, "--format", "json")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var got []grid.Box
	if err := sonic.UnmarshalString(out, &got); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	want := []grid.Box{
		{Label: "todo", Name: "Todo", Color: "#ffcc00", MinRow: 0, MinCol: 0, MaxRow: 0, MaxCol: 2},
		{Label: "doing", Name: "Doing", Color: "#00ccff", MinRow: 1, MinCol: 0, MaxRow: 2, MaxCol: 0},
		{Label: "done", Name: "Done", Color: "#222222", MinRow: 1, MinCol: 2, MaxRow: 2, MaxCol: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("compiled boxes mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileTable(t *testing.T) {
	out, err := run(t, "compile", writeBoard(t, weekBoard))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 3 || !strings.HasPrefix(lines[0], "Todo") {
		t.Fatalf("unexpected table output:\n%s", out)
	}
}

func TestCompileRejectsInvalidBoard(t *testing.T) {
	path := writeBoard(t, "slug: big\nrows: 80\ncols: 2\n")
	if _, err := run(t, "compile", path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestHit(t *testing.T) {
	path := writeBoard(t, weekBoard)
	out, err := run(t, "hit", path, "2", "0")
	if err != nil {
		t.Fatalf("hit: %v", err)
	}
	if strings.TrimSpace(out) != "Doing" {
		t.Fatalf("expected Doing, got %q", out)
	}
	if _, err := run(t, "hit", path, "1", "1"); err == nil {
		t.Fatalf("expected miss on an unpainted cell")
	}
	if _, err := run(t, "hit", path, "x", "1"); err == nil {
		t.Fatalf("expected error for a non-numeric row")
	}
}

func TestResizeWritesClippedBoard(t *testing.T) {
	path := writeBoard(t, weekBoard)
	dest := filepath.Join(t.TempDir(), "small.yaml")
	if _, err := run(t, "resize", path, "--rows", "1", "--cols", "2", "-o", dest); err != nil {
		t.Fatalf("resize: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var b domain.Board
	if err := yaml.Unmarshal(data, &b); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if b.Rows != 1 || b.Cols != 2 {
		t.Fatalf("unexpected size %dx%d", b.Rows, b.Cols)
	}
	if len(b.Areas) != 3 || b.Areas[0].Label != "Todo" || len(b.Areas[0].Tiles) != 2 {
		t.Fatalf("expected the clipped Todo area first, got %+v", b.Areas)
	}
	if len(b.Areas[1].Tiles) != 0 || len(b.Areas[2].Tiles) != 0 {
		t.Fatalf("expected Doing and Done kept without tiles, got %+v", b.Areas)
	}
}

func TestResizeRequiresDimensions(t *testing.T) {
	if _, err := run(t, "resize", writeBoard(t, weekBoard), "--rows", "2"); err == nil {
		t.Fatalf("expected missing --cols error")
	}
	if _, err := run(t, "resize", writeBoard(t, weekBoard), "--rows", "0", "--cols", "2"); err == nil {
		t.Fatalf("expected invalid size error")
	}
}
