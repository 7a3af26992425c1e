package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/farectl/internal/card"
	"github.com/danmuck/farectl/internal/formats"
	"github.com/danmuck/farectl/internal/testutil/cardtest"
	"github.com/danmuck/farectl/internal/testutil/testlog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeDump(t *testing.T, dir string, c *card.Card) string {
	t.Helper()
	path := filepath.Join(dir, "card.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := card.Encode(f, c); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "farectl.toml")
	body := fmt.Sprintf("log_level = \"debug\"\n\n[store]\ndir = %q\n", filepath.Join(dir, "archive"))
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDumpSimPrintsCanonicalCard(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	want := cardtest.Purse(t, "1000123456789012", 700, cardtest.Tx(0x31, -92, 900000000, "SVC14e  "))
	path := writeDump(t, dir, want)

	out, err := run(t, "dump", "--sim", path, "--config", writeTestConfig(t, dir))
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	got, err := card.Decode(strings.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !bytes.Equal(got.TagID(), want.TagID()) || len(got.Applications()) != 1 {
		t.Fatalf("unexpected dump output")
	}
}

func TestDumpNoUIDTakesVersionUID(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	want := cardtest.Purse(t, "1000123456789012", 700)
	path := writeDump(t, dir, want)

	out, err := run(t, "dump", "--sim", path, "--no-uid", "--no-parse", "--config", writeTestConfig(t, dir))
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	got, err := card.Decode(strings.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if !bytes.Equal(got.TagID(), want.ManufacturingData()[14:21]) {
		t.Fatalf("tag id = % X, want uid from version", got.TagID())
	}
}

func TestServiceLoggerKeepsFlagLevel(t *testing.T) {
	testlog.Start(t)
	prevLevel, prevLogger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prevLogger
	})

	dir := t.TempDir()
	if _, err := run(t, "formats", "--log-level", "error", "--config", writeTestConfig(t, dir)); err != nil {
		t.Fatalf("formats: %v", err)
	}
	initServiceLogger("farectl-test")
	if zerolog.GlobalLevel() != zerolog.ErrorLevel || log.Logger.GetLevel() != zerolog.ErrorLevel {
		t.Fatalf("level = %s/%s, want error from --log-level over config debug", zerolog.GlobalLevel(), log.Logger.GetLevel())
	}
}

func TestDumpArchiveThenDecodeByCID(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	path := writeDump(t, dir, cardtest.Purse(t, "1000123456789012", 700, cardtest.Tx(0x31, -92, 900000000, "SVC14e  ")))

	out, err := run(t, "dump", "--sim", path, "--output", filepath.Join(dir, "archive"), "--no-parse", "--config", cfgPath)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	id := strings.TrimSpace(out)

	out, err = run(t, "decode", id, "--config", cfgPath)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var res formats.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if res.Format != "sg.ezlink" || res.Balance == nil || res.Balance.Minor != 700 || len(res.Trips) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestDumpTraceThenReplay(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)
	path := writeDump(t, dir, cardtest.Purse(t, "1000123456789012", 5))
	tracePath := filepath.Join(dir, "card.trace")

	first, err := run(t, "dump", "--sim", path, "--trace", tracePath, "--no-parse", "--config", cfgPath)
	if err != nil {
		t.Fatalf("dump with trace: %v", err)
	}
	second, err := run(t, "dump", "--replay", tracePath, "--no-parse", "--config", cfgPath)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	a, err := card.Decode(strings.NewReader(first))
	if err != nil {
		t.Fatalf("decode first: %v", err)
	}
	b, err := card.Decode(strings.NewReader(second))
	if err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if !bytes.Equal(a.TagID(), b.TagID()) || len(a.Applications()) != len(b.Applications()) {
		t.Fatalf("replayed dump differs")
	}
}

func TestDumpRequiresSingleSource(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	if _, err := run(t, "dump", "--sim", "a.json", "--replay", "b.trace", "--config", writeTestConfig(t, dir)); err == nil {
		t.Fatalf("expected conflicting sources to fail")
	}
	if _, err := run(t, "dump", "--config", writeTestConfig(t, dir)); err == nil {
		t.Fatalf("expected missing source to fail")
	}
}

func TestIdentifyUnrecognized(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	path := writeDump(t, dir, cardtest.WithApps(t, 0x123456))
	if _, err := run(t, "identify", path, "--config", writeTestConfig(t, dir)); !errors.Is(err, errUnrecognized) {
		t.Fatalf("identify = %v, want errUnrecognized", err)
	}
}

func TestFormatsListsPrecedence(t *testing.T) {
	testlog.Start(t)
	out, err := run(t, "formats", "--config", writeTestConfig(t, t.TempDir()))
	if err != nil {
		t.Fatalf("formats: %v", err)
	}
	ez := strings.Index(out, "sg.ezlink")
	stub := strings.Index(out, "stub.metrocard")
	if ez < 0 || stub < 0 || ez > stub {
		t.Fatalf("unexpected formats output:\n%s", out)
	}
}

func TestConfigInit(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "farectl.toml")
	if _, err := run(t, "config", "init", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := run(t, "formats", "--config", path); err != nil {
		t.Fatalf("generated config should load: %v", err)
	}
	if _, err := run(t, "config", "init", path); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
}
