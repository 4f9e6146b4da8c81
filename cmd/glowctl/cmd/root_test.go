package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_BACKEND", "file")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("LEDGER_KEY", "glow_transactions_v1")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("glowctl %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestAddAndReports(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "add", "--title", "Salary", "--amount", "100", "--kind", "income", "--date", "2024-06-01")
	if !strings.Contains(out, "Salary +₹100.00 on 2024-06-01") {
		t.Fatalf("add output = %q", out)
	}
	mustRun(t, "add", "--title", "Rent", "--amount", "40", "--date", "2024-06-03", "--category", "home")

	out = mustRun(t, "summary", "--date", "2024-06-20")
	for _, want := range []string{"Jun 2024", "Income:     ₹100.00", "Expense:    ₹40.00", "Money Left: ₹60.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	out = mustRun(t, "recent", "--limit", "1")
	if !strings.Contains(out, "Rent") || strings.Contains(out, "Salary") {
		t.Fatalf("recent = %q", out)
	}
	if !strings.Contains(out, "expense • home • 2024-06-03") || !strings.Contains(out, "-₹40.00") {
		t.Fatalf("recent row formatting = %q", out)
	}

	out = mustRun(t, "list")
	if strings.Index(out, "Salary") > strings.Index(out, "Rent") {
		t.Fatalf("list must be oldest first:\n%s", out)
	}

	out = mustRun(t, "chart", "--date", "2024-06-20", "--months", "2")
	if !strings.Contains(out, "May 2024") || !strings.Contains(out, "Jun 2024") || !strings.Contains(out, "100.00") {
		t.Fatalf("chart = %q", out)
	}
}

func TestSummaryJSON(t *testing.T) {
	setupEnv(t)
	mustRun(t, "add", "--title", "Rent", "--amount", "40", "--date", "2024-06-03")

	out := mustRun(t, "--json", "summary", "--date", "2024-06-03")
	var s struct {
		Month        string `json:"month"`
		BalanceCents int64  `json:"balance_cents"`
		Balance      string `json:"balance"`
	}
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if s.Month != "2024-06" || s.BalanceCents != -4000 || s.Balance != "-₹40.00" {
		t.Fatalf("summary = %+v", s)
	}
}

func TestRecent_Empty(t *testing.T) {
	setupEnv(t)
	if out := mustRun(t, "recent"); !strings.Contains(out, emptyRecent) {
		t.Fatalf("recent = %q", out)
	}
}

func TestAdd_InvalidInput(t *testing.T) {
	setupEnv(t)

	if _, err := run(t, "add", "--title", "x", "--amount", "abc"); err == nil {
		t.Fatal("expected an error for a non-numeric amount")
	}
	if _, err := run(t, "add", "--amount", "5"); err == nil {
		t.Fatal("expected an error without --title")
	}
	if _, err := run(t, "add", "--title", "x", "--amount", "5", "--kind", "transfer"); err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
	if out := mustRun(t, "--json", "list"); strings.TrimSpace(out) != "[]" {
		t.Fatalf("ledger should be empty, got %q", out)
	}
}

func TestExport(t *testing.T) {
	dir := setupEnv(t)

	out := mustRun(t, "export")
	if !strings.Contains(out, "Glow: Expense Summary") || !strings.Contains(out, "No transactions recorded") {
		t.Fatalf("export = %q", out)
	}

	mustRun(t, "add", "--title", "Coffee", "--amount", "3.5")
	pdf := filepath.Join(dir, "glow_summary.pdf")
	out = mustRun(t, "export", "--pdf", pdf)
	if !strings.Contains(out, "1 page(s)") {
		t.Fatalf("export --pdf = %q", out)
	}
	data, err := os.ReadFile(pdf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("DATA_BACKEND", "postgres")
	if _, err := run(t, "list"); err == nil || !strings.Contains(err.Error(), "configuration validation failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestBadDateFlag(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "summary", "--date", "June"); err == nil {
		t.Fatal("expected an error for a malformed --date")
	}
}
