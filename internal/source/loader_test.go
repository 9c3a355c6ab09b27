package source

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vrpipe/vrpipe/internal/testutil"
)

func writeSource(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadHeadered(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "ativos.csv", []byte("MATRICULA,NOME,Sindicato\n1042,Ana,SINDPD SP\n1043,Bia,SITEPD PR\n"))

	loader := NewLoader(dir, testutil.NewTestLogger(t))
	table, err := loader.Load(Spec{
		Name:            "active_employees",
		File:            "ativos.csv",
		RequiredColumns: []string{"MATRICULA", "Sindicato"},
	})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2", table.Len())
	}
	if got := table.Rows[0].Get("NOME"); got != "Ana" {
		t.Errorf("row 0 NOME = %q, want Ana", got)
	}
	if m := table.Rows[1].Matricula("MATRICULA"); m != "1043" {
		t.Errorf("row 1 matricula = %q, want 1043", m)
	}
}

func TestLoadMissingRequiredColumn(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "ativos.csv", []byte("MATRICULA,NOME\n1042,Ana\n"))

	loader := NewLoader(dir, testutil.NewTestLogger(t))
	_, err := loader.Load(Spec{
		Name:            "active_employees",
		File:            "ativos.csv",
		RequiredColumns: []string{"MATRICULA", "Sindicato"},
	})
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 1 || schemaErr.Missing[0] != "Sindicato" {
		t.Errorf("Missing = %v, want [Sindicato]", schemaErr.Missing)
	}
}

func TestLoadNotFound(t *testing.T) {
	loader := NewLoader(t.TempDir(), testutil.NewTestLogger(t))
	_, err := loader.Load(Spec{Name: "vacations", File: "ferias.csv"})
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestLoadHeaderless(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "exterior.csv", []byte("1042,500.0,ok\n1050,650.0,ok\n"))

	loader := NewLoader(dir, testutil.NewTestLogger(t))
	table, err := loader.Load(Spec{
		Name:        "foreign_employees",
		File:        "exterior.csv",
		Headerless:  true,
		ColumnNames: []string{"MATRICULA", "VALOR_EXTERIOR", "STATUS_EXTERIOR"},
	})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2 (first row is data, not a header)", table.Len())
	}
	if got := table.Rows[0].Get("MATRICULA"); got != "1042" {
		t.Errorf("row 0 MATRICULA = %q, want 1042", got)
	}
}

func TestLoadHeaderlessWithoutColumnNames(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "exterior.csv", []byte("1042,500.0\n"))

	loader := NewLoader(dir, testutil.NewTestLogger(t))
	if _, err := loader.Load(Spec{Name: "foreign_employees", File: "exterior.csv", Headerless: true}); err == nil {
		t.Error("headerless spec without column names must fail")
	}
}

func TestLoadColumnNameOverride(t *testing.T) {
	dir := t.TempDir()
	// The export ships a junk title row where the header belongs.
	writeSource(t, dir, "base_dias_uteis.csv", []byte("Planilha de dias,\nSINDPD SP,22\n"))

	loader := NewLoader(dir, testutil.NewTestLogger(t))
	table, err := loader.Load(Spec{
		Name:        "working_days_by_union",
		File:        "base_dias_uteis.csv",
		ColumnNames: []string{"SINDICATO", "DIAS_UTEIS"},
	})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("rows = %d, want 1", table.Len())
	}
	if n, ok := table.Rows[0].Int("DIAS_UTEIS"); !ok || n != 22 {
		t.Errorf("DIAS_UTEIS = %d/%t, want 22/true", n, ok)
	}
}

func TestLoadLatin1Fallback(t *testing.T) {
	dir := t.TempDir()
	// "Admissão" encoded as ISO 8859-1: 0xE3 for ã is invalid UTF-8.
	content := append([]byte("MATRICULA,Admiss"), 0xE3, 'o')
	content = append(content, []byte("\n1042,01/05/2025\n")...)
	writeSource(t, dir, "admissao.csv", content)

	loader := NewLoader(dir, testutil.NewTestLogger(t))
	table, err := loader.Load(Spec{
		Name:            "admissions",
		File:            "admissao.csv",
		RequiredColumns: []string{"MATRICULA", "Admissão"},
	})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if d, ok := table.Rows[0].Date("Admissão"); !ok || d.Day() != 1 {
		t.Errorf("Admissão = %v/%t, want day 1", d, ok)
	}
}

func TestLoadStripsBOM(t *testing.T) {
	dir := t.TempDir()
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("MATRICULA,NOME\n1,Ana\n")...)
	writeSource(t, dir, "ativos.csv", content)

	loader := NewLoader(dir, testutil.NewTestLogger(t))
	table, err := loader.Load(Spec{
		Name:            "active_employees",
		File:            "ativos.csv",
		RequiredColumns: []string{"MATRICULA"},
	})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !table.HasColumn("MATRICULA") {
		t.Errorf("BOM should be stripped from the first header, got %v", table.Headers)
	}
}

func TestLoadRaggedRows(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "ativos.csv", []byte("MATRICULA,NOME,Sindicato\n1042,Ana\n1043,Bia,SINDPD SP,extra\n\n"))

	loader := NewLoader(dir, testutil.NewTestLogger(t))
	table, err := loader.Load(Spec{Name: "active_employees", File: "ativos.csv"})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2 (blank line skipped)", table.Len())
	}
	if got := table.Rows[0].Get("Sindicato"); got != "" {
		t.Errorf("short row should be padded, Sindicato = %q", got)
	}
	if got := table.Rows[1].Get("Sindicato"); got != "SINDPD SP" {
		t.Errorf("long row should be truncated, Sindicato = %q", got)
	}
	if len(table.Warnings) != 2 {
		t.Errorf("warnings = %d, want 2 (pad + truncate)", len(table.Warnings))
	}
}

func TestLoadAllOptionalMissing(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "ativos.csv", []byte("MATRICULA,Sindicato\n1042,SINDPD SP\n"))

	loader := NewLoader(dir, testutil.NewTestLogger(t))
	specs := []Spec{
		{Name: "active_employees", File: "ativos.csv", RequiredColumns: []string{"MATRICULA"}, Mandatory: true},
		{Name: "vacations", File: "ferias.csv", RequiredColumns: []string{"MATRICULA"}},
	}

	tables, errs := loader.LoadAll(specs)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if tables["vacations"] == nil || !tables["vacations"].Empty() {
		t.Error("absent optional source should load as an empty table")
	}
	if tables["active_employees"].Len() != 1 {
		t.Error("mandatory source should load normally")
	}
}

func TestLoadAllMandatoryMissing(t *testing.T) {
	loader := NewLoader(t.TempDir(), testutil.NewTestLogger(t))
	specs := []Spec{
		{Name: "active_employees", File: "ativos.csv", Mandatory: true},
	}
	_, errs := loader.LoadAll(specs)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	if !IsNotFound(errs[0]) {
		t.Errorf("expected not-found error, got %v", errs[0])
	}
}

func TestRowIntTolerantParsing(t *testing.T) {
	row := Row{"DIAS": "22.0", "NEG": "-3", "COMMA": "15,0", "BAD": "abc", "EMPTY": ""}

	if n, ok := row.Int("DIAS"); !ok || n != 22 {
		t.Errorf(`Int("22.0") = %d/%t, want 22/true`, n, ok)
	}
	if n, ok := row.Int("NEG"); !ok || n != -3 {
		t.Errorf(`Int("-3") = %d/%t, want -3/true`, n, ok)
	}
	if n, ok := row.Int("COMMA"); !ok || n != 15 {
		t.Errorf(`Int("15,0") = %d/%t, want 15/true`, n, ok)
	}
	if _, ok := row.Int("BAD"); ok {
		t.Error(`Int("abc") should fail`)
	}
	if _, ok := row.Int("EMPTY"); ok {
		t.Error("Int on empty field should fail")
	}
}

func TestRowDateLayouts(t *testing.T) {
	row := Row{"ISO": "2025-05-15", "BR": "15/05/2025", "TS": "2025-05-15 00:00:00", "BAD": "soon"}

	for _, col := range []string{"ISO", "BR", "TS"} {
		d, ok := row.Date(col)
		if !ok {
			t.Errorf("Date(%s) failed to parse", col)
			continue
		}
		if d.Day() != 15 || d.Month() != 5 || d.Year() != 2025 {
			t.Errorf("Date(%s) = %v, want 2025-05-15", col, d)
		}
	}
	if _, ok := row.Date("BAD"); ok {
		t.Error(`Date("soon") should fail`)
	}
}
