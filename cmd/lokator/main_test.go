package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/erazemk/lokator/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInitAndUseradd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "lokator.sqlite3")

	if _, err := run(t, "init", "--db", dbPath, "--user", "root"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database file: %v", err)
	}
	if _, err := run(t, "init", "--db", dbPath); err == nil {
		t.Error("expected second init to fail")
	}

	out, err := run(t, "useradd", "--db", dbPath, "--role", "manager", "ana")
	if err != nil {
		t.Fatalf("useradd: %v", err)
	}
	if !strings.Contains(out, "Password: ") {
		t.Errorf("expected generated password in output, got %q", out)
	}
	if _, err := run(t, "useradd", "--db", dbPath, "ana"); err == nil {
		t.Error("expected duplicate username to fail")
	}
	if _, err := run(t, "useradd", "--db", dbPath, "--role", "owner", "bob"); err == nil {
		t.Error("expected invalid role to fail")
	}
}

func TestImportAndExport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "lokator.sqlite3")
	if _, err := run(t, "migrate", "--db", dbPath); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	csvPath := filepath.Join(dir, "items.csv")
	os.WriteFile(csvPath, []byte("name,item_type\nLaptop,Laptop\n"), 0644)

	// The item type does not exist yet, so the row is rejected.
	out, err := run(t, "import", "--db", dbPath, csvPath)
	if err == nil {
		t.Fatal("expected import with rejected rows to fail")
	}
	if !strings.Contains(out, "row 1") {
		t.Errorf("expected row error in output, got %q", out)
	}

	out, err = run(t, "export", "--db", dbPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(out, "ID,Name,Serial Number") {
		t.Errorf("unexpected export output %q", out)
	}

	xlsxPath := filepath.Join(dir, "inventory.xlsx")
	if _, err := run(t, "export", "--db", dbPath, "-o", xlsxPath); err != nil {
		t.Fatalf("xlsx export: %v", err)
	}
	if fi, err := os.Stat(xlsxPath); err != nil || fi.Size() == 0 {
		t.Errorf("expected xlsx file, got %v", err)
	}
}

func TestLevelRouter(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := slog.New(newHandler(config.LogConfig{Level: "info", Format: "text"}, &out, &errOut))

	logger.Debug("hidden")
	logger.Info("to stdout")
	logger.Error("to stderr")

	if strings.Contains(out.String(), "hidden") {
		t.Error("expected debug to be filtered at info level")
	}
	if !strings.Contains(out.String(), "to stdout") || strings.Contains(out.String(), "to stderr") {
		t.Errorf("unexpected stdout: %q", out.String())
	}
	if !strings.Contains(errOut.String(), "to stderr") {
		t.Errorf("unexpected stderr: %q", errOut.String())
	}
}
