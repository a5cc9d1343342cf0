package app

import (
	"flag"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/hailam/chesscore/internal/board"
)

func parse(t *testing.T, args ...string) *Flags {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestFlags(t *testing.T) {
	f := parse(t, "-threads", "3", "-index", "pext")
	if f.Hash != 64 || f.Threads != 3 || f.Index != "pext" || f.DB != "" {
		t.Errorf("flags = %+v", f)
	}
	if !f.IsSet("threads") || f.IsSet("hash") {
		t.Error("IsSet disagrees with the command line")
	}
}

func TestTables(t *testing.T) {
	tests := []struct {
		index string
		want  board.IndexMode
		ok    bool
	}{
		{"magic", board.IndexMagic, true},
		{"pext", board.IndexPext, true},
		{"search", board.IndexMagic, true},
		{"rotated", 0, false},
	}
	for _, tc := range tests {
		tables, err := parse(t, "-index", tc.index).Tables()
		if (err == nil) != tc.ok {
			t.Errorf("%s: err = %v", tc.index, err)
			continue
		}
		if tc.ok && tables.IndexMode() != tc.want {
			t.Errorf("%s: mode %v", tc.index, tables.IndexMode())
		}
	}
	if tables, _ := parse(t).Tables(); tables != board.Default() {
		t.Error("default index does not share the default tables")
	}
}

func TestEngine(t *testing.T) {
	eng, err := parse(t, "-threads", "2", "-hash", "1").Engine()
	if err != nil {
		t.Fatal(err)
	}
	if eng.Threads() != 2 {
		t.Errorf("threads = %d", eng.Threads())
	}
}

func TestOpenStorage(t *testing.T) {
	if s, err := parse(t).OpenStorage(); s != nil || err != nil {
		t.Errorf("no -db: %v, %v", s, err)
	}

	s, err := parse(t, "-db", filepath.Join(t.TempDir(), "db")).OpenStorage()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	opts, err := s.LoadOptions()
	if err != nil || opts.Hash != 64 {
		t.Errorf("LoadOptions = %+v, %v", opts, err)
	}
}

func TestOpenBook(t *testing.T) {
	if b, err := parse(t).OpenBook(); b != nil || err != nil {
		t.Errorf("no -book: %v, %v", b, err)
	}
	if _, err := parse(t, "-book", filepath.Join(t.TempDir(), "missing.bin")).OpenBook(); err == nil {
		t.Error("missing book opened")
	}
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	if err := SetupLogging("warn"); err != nil {
		t.Fatal(err)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("level = %v", zerolog.GlobalLevel())
	}
	if err := SetupLogging("loud"); err == nil {
		t.Error("bad level accepted")
	}
}

func TestStartProfileDisabled(t *testing.T) {
	t.Setenv("CPUPROFILE", "")
	stop, err := StartProfile("")
	if err != nil {
		t.Fatal(err)
	}
	stop()
}
