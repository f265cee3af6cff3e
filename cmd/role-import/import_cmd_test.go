package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/role-import/modules/access/domain/entities/assignment"
	"github.com/iota-uz/role-import/modules/access/services"
	"github.com/iota-uz/role-import/pkg/database"
	"github.com/iota-uz/role-import/pkg/excel"
	"github.com/iota-uz/role-import/pkg/spreadsheet"
)

func testApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", "1")
	t.Setenv("DB_TIMEOUT", "2s")
	t.Setenv("LOG_LEVEL", "silent")
	a, err := newApp(&rootOptions{})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	return a
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func writeInput(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for axis, v := range map[string]string{"A1": "用户名", "B1": "角色", "A2": "alice", "B2": "admin"} {
		if err := f.SetCellStr(sheet, axis, v); err != nil {
			t.Fatalf("set %s: %v", axis, err)
		}
	}
	path := filepath.Join(t.TempDir(), "users.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	return path
}

func TestExitCodeClassification(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{withCode(exitSafetyNet, errors.New("x")), exitSafetyNet},
		{fmt.Errorf("load: %w", &database.ConnectionError{Driver: "mysql", Err: errors.New("refused")}), exitDB},
		{&services.InsertError{Line: 2, Err: errors.New("dup")}, exitDBWrite},
		{&services.InsertError{Line: 2, Err: &database.ConnectionError{Err: errors.New("gone")}}, exitDB},
		{&excel.WriteError{Path: "out.xlsx", Err: os.ErrPermission}, exitFileWrite},
		{fmt.Errorf("%w: users.xlsx", spreadsheet.ErrFileNotFound), exitUsage},
		{&spreadsheet.ParseError{Format: spreadsheet.FormatXLSX, Err: errors.New("zip")}, exitValidation},
		{&spreadsheet.DetectError{Path: "x"}, exitValidation},
		{errors.New("other"), 1},
	}
	for i, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Fatalf("case %d: exitCode(%v)=%d, want %d", i, c.err, got, c.want)
		}
	}
}

func TestRunImport_MissingInput(t *testing.T) {
	a := testApp(t)
	err := runImport(context.Background(), a, importOptions{input: filepath.Join(t.TempDir(), "nope.xlsx")})
	if got := exitCode(err); got != exitUsage {
		t.Fatalf("expected exit %d, got %d (%v)", exitUsage, got, err)
	}
}

func TestRunImport_GarbageInput(t *testing.T) {
	a := testApp(t)
	path := filepath.Join(t.TempDir(), "users.xls")
	if err := os.WriteFile(path, []byte("not a workbook"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := runImport(context.Background(), a, importOptions{input: path, format: "auto"})
	if got := exitCode(err); got != exitValidation {
		t.Fatalf("expected exit %d, got %d (%v)", exitValidation, got, err)
	}
}

func TestRunExport_RejectsNegativeMaxRows(t *testing.T) {
	a := testApp(t)
	err := runExport(context.Background(), a, exportOptions{output: filepath.Join(t.TempDir(), "out.xlsx"), maxRows: -1})
	if got := exitCode(err); got != exitUsage {
		t.Fatalf("expected exit %d, got %d (%v)", exitUsage, got, err)
	}
}

func TestRunImport_UnreachableDatabase(t *testing.T) {
	a := testApp(t)
	err := runImport(context.Background(), a, importOptions{input: writeInput(t)})
	if got := exitCode(err); got != exitDB {
		t.Fatalf("expected exit %d, got %d (%v)", exitDB, got, err)
	}
}

func TestImportOptionsResolved(t *testing.T) {
	a := testApp(t)
	a.profile.Format = "xls"
	a.profile.Sheet = "Users"

	o := importOptions{input: "/data/users.xlsx", startRow: 1, batchCommit: true}.resolved(a)
	if o.output != "/data/users_result.xlsx" {
		t.Fatalf("output=%q", o.output)
	}
	if o.manifestDir != "/data" {
		t.Fatalf("manifestDir=%q", o.manifestDir)
	}
	if o.format != "xls" {
		t.Fatalf("format=%q", o.format)
	}
	if sel := o.sheetSelector(); sel.Name != "Users" {
		t.Fatalf("sheet=%v", sel)
	}

	o = importOptions{input: "in.xlsx", format: "xlsx", sheetIndex: 2, sheetIndexSet: true}.resolved(a)
	if o.format != "xlsx" || o.sheetSelector().Index != 2 || o.sheetSelector().Name != "" {
		t.Fatalf("flags must win over profile: %+v", o)
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := &importManifestV1{
		Version:    1,
		RunID:      uuid.New(),
		Status:     "applied",
		Table:      "auth_contact_user_role",
		FinishedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Inserted:   []assignment.Pair{{UserCode: "U1", RoleCode: "R1"}},
		Summary:    map[string]int{"accepted": 1},
	}
	path, err := writeManifest(dir, m)
	if err != nil {
		t.Fatalf("writeManifest: %v", err)
	}
	if want := fmt.Sprintf("import_manifest_20260102T030405Z_%s.json", m.RunID); filepath.Base(path) != want {
		t.Fatalf("path=%s, want %s", filepath.Base(path), want)
	}
	got, err := readManifest(path)
	if err != nil {
		t.Fatalf("readManifest: %v", err)
	}
	if got.RunID != m.RunID || len(got.Inserted) != 1 || got.Inserted[0] != m.Inserted[0] {
		t.Fatalf("unexpected manifest: %+v", got)
	}
}

func TestReadManifest_RejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	if err := os.WriteFile(path, []byte(`{"version":1,"bogus":true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := readManifest(path)
	if got := exitCode(err); got != exitValidation {
		t.Fatalf("expected exit %d, got %d (%v)", exitValidation, got, err)
	}
}

func TestRunRollback_SafetyNet(t *testing.T) {
	a := testApp(t)
	m := &importManifestV1{
		Version:  1,
		RunID:    uuid.New(),
		Status:   "applied",
		Table:    a.tables.Join,
		Inserted: []assignment.Pair{{UserCode: "U1", RoleCode: "R1"}},
	}
	path, err := writeManifest(t.TempDir(), m)
	if err != nil {
		t.Fatal(err)
	}

	out := captureStdout(t)
	if err := runRollback(context.Background(), a, rollbackOptions{manifestPath: path}); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	var summary rollbackSummary
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("summary: %v (%s)", err, out.String())
	}
	if summary.Status != "dry_run" || summary.Pairs != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	err = runRollback(context.Background(), a, rollbackOptions{manifestPath: path, apply: true})
	if got := exitCode(err); got != exitSafetyNet {
		t.Fatalf("expected exit %d, got %d (%v)", exitSafetyNet, got, err)
	}
}

func TestRunRollback_TableMismatch(t *testing.T) {
	a := testApp(t)
	m := &importManifestV1{Version: 1, RunID: uuid.New(), Table: "other_table"}
	path, err := writeManifest(t.TempDir(), m)
	if err != nil {
		t.Fatal(err)
	}
	err = runRollback(context.Background(), a, rollbackOptions{manifestPath: path})
	if got := exitCode(err); got != exitValidation {
		t.Fatalf("expected exit %d, got %d (%v)", exitValidation, got, err)
	}
}

func TestDefaultReportPath(t *testing.T) {
	if got := defaultReportPath("dir/users.xls"); got != "dir/users_result.xlsx" {
		t.Fatalf("got %s", got)
	}
	if got := defaultReportPath("users"); got != "users_result.xlsx" {
		t.Fatalf("got %s", got)
	}
}
