package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/store/sqlite"
)

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	alice = common.HexToAddress("0x0000000000000000000000000000000000000a11")
)

const configTmpl = `
store:
  driver: sqlite
  path: DBPATH
addresses:
  admins: ["0x00000000000000000000000000000000000000a0"]
  vesting: "0x00000000000000000000000000000000000000c0"
  presale: "0x00000000000000000000000000000000000000c1"
  token: "0x0000000000000000000000000000000000000070"
  recovery: "0x00000000000000000000000000000000000000ee"
log:
  level: error
`

// setup writes a config over a fresh sqlite file and returns its path.
func setup(t *testing.T) (cfgPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "launchpad.db")
	cfgPath = filepath.Join(dir, "launchpad.yaml")
	body := strings.Replace(configTmpl, "DBPATH", dbPath, 1)
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return cfgPath, dbPath
}

// seed creates one schedule through the engine.
func seed(t *testing.T, dbPath string) {
	t.Helper()
	s, err := sqlite.Open(context.Background(), dbPath)
	if err != nil {
		t.Fatal(err)
	}
	lp := launchpad.New(s,
		launchpad.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		launchpad.WithAdmin(admin),
		launchpad.WithVestingAddress(common.HexToAddress("0x00000000000000000000000000000000000000c0")),
		launchpad.WithPresaleAddress(common.HexToAddress("0x00000000000000000000000000000000000000c1")),
		launchpad.WithSaleToken(common.HexToAddress("0x0000000000000000000000000000000000000070")),
		launchpad.WithRecoveryAddress(common.HexToAddress("0x00000000000000000000000000000000000000ee")),
	)
	ctx := context.Background()
	if err := lp.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := lp.Vesting().CreateSchedule(ctx, admin, alice, uint256.NewInt(5_000), time.Hour, 24*time.Hour, 1_000, "team"); err != nil {
		t.Fatal(err)
	}
	if err := lp.Stop(); err != nil {
		t.Fatal(err)
	}
}

func exec(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestMigrateThenList(t *testing.T) {
	cfg, db := setup(t)

	out, err := exec(t, "-c", cfg, "migrate")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "sqlite store migrated") {
		t.Errorf("migrate output = %q", out)
	}

	seed(t, db)

	out, err = exec(t, "-c", cfg, "schedules")
	if err != nil {
		t.Fatalf("schedules: %v", err)
	}
	if !strings.Contains(out, alice.Hex()) || !strings.Contains(out, "5000") || !strings.Contains(out, "team") {
		t.Errorf("schedules text output = %q", out)
	}

	out, err = exec(t, "-c", cfg, "-o", "json", "schedules", "--group", "team")
	if err != nil {
		t.Fatalf("schedules json: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(decoded) != 1 {
		t.Fatalf("decoded %d schedules, want 1", len(decoded))
	}

	out, err = exec(t, "-c", cfg, "-o", "json", "schedules", "--group", "advisors")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("empty group output = %q, want []", out)
	}
}

func TestEventsFilter(t *testing.T) {
	cfg, db := setup(t)
	seed(t, db)

	out, err := exec(t, "-c", cfg, "events", "--kind", "vesting.schedule_created", "--subject", alice.Hex())
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if !strings.Contains(out, "vesting.schedule_created") {
		t.Errorf("events output = %q", out)
	}

	out, err = exec(t, "-c", cfg, "-o", "yaml", "events", "--ledger", "presale")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("presale events = %q, want []", out)
	}

	if _, err := exec(t, "-c", cfg, "events", "--since", "yesterday"); !errors.Is(err, errUsage) {
		t.Errorf("bad --since error = %v, want usage", err)
	}
}

func TestReconcile(t *testing.T) {
	cfg, db := setup(t)
	seed(t, db)

	out, err := exec(t, "-c", cfg, "reconcile")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !strings.Contains(out, "status") || !strings.Contains(out, "ok") {
		t.Errorf("reconcile output = %q", out)
	}

	out, err = exec(t, "-c", cfg, "-o", "json", "reconcile")
	if err != nil {
		t.Fatal(err)
	}
	var report struct {
		Schedules       int    `json:"schedules"`
		GlobalAllocated string `json:"global_allocated"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if report.Schedules != 1 || report.GlobalAllocated != "5000" {
		t.Errorf("report = %+v", report)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lp.yaml")

	if _, err := exec(t, "config", "init", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "driver: sqlite") {
		t.Errorf("written config = %q", data)
	}

	if _, err := exec(t, "config", "init", path); err == nil {
		t.Error("config init overwrote an existing file without --force")
	}
	if _, err := exec(t, "config", "init", "--force", path); err != nil {
		t.Errorf("config init --force: %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := [][]string{
		{},
		{"frobnicate"},
		{"-o", "xml", "schedules"},
		{"config"},
		{"schedules", "extra"},
	}
	for _, args := range tests {
		if _, err := exec(t, args...); !errors.Is(err, errUsage) {
			t.Errorf("run(%v) = %v, want usage error", args, err)
		}
	}
}
