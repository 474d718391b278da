package zeeplevel

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func levelText(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestParseBasic(t *testing.T) {
	data := levelText(
		"LevelEditor2,alice,uid-123",
		"0,0,0,0,0,0,0,0",
		"12.5,20,30,40,2,3",
		"1,0,0,0",
		"2,10,0,0",
		"22,5,0,0",
		"22,6,0,0",
	)

	lvl, err := Parse("My Level", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if lvl.Name != "My Level" {
		t.Errorf("Name = %q, want %q", lvl.Name, "My Level")
	}
	if lvl.Author != "alice" {
		t.Errorf("Author = %q, want %q", lvl.Author, "alice")
	}
	if lvl.UID != "uid-123" {
		t.Errorf("UID = %q, want %q", lvl.UID, "uid-123")
	}
	if !lvl.Times.Valid {
		t.Error("Times.Valid = false, want true")
	}
	if lvl.Times.Validation != 12.5 || lvl.Times.Gold != 20 || lvl.Times.Silver != 30 || lvl.Times.Bronze != 40 {
		t.Errorf("Times = %+v, want 12.5/20/30/40", lvl.Times)
	}
	if lvl.Environment.Skybox != 2 || lvl.Environment.Ground != 3 {
		t.Errorf("Environment = %+v, want skybox 2, ground 3", lvl.Environment)
	}
	if lvl.Checkpoints != 2 {
		t.Errorf("Checkpoints = %d, want 2", lvl.Checkpoints)
	}
	if !lvl.TrackValid {
		t.Error("TrackValid = false, want true")
	}
	if !lvl.Valid() {
		t.Error("Valid() = false, want true")
	}
	if lvl.ContentHash == "" {
		t.Error("ContentHash is empty")
	}
	if lvl.ContentHash != strings.ToUpper(lvl.ContentHash) {
		t.Errorf("ContentHash %q is not uppercase", lvl.ContentHash)
	}
	if len(lvl.ContentHash) != 40 {
		t.Errorf("ContentHash length = %d, want 40", len(lvl.ContentHash))
	}
}

func TestParseBlankNameAndAuthor(t *testing.T) {
	data := levelText(
		"LevelEditor2, ,uid-1",
		"camera",
		"1,2,3,4,0,0",
		"1,0",
		"2,0",
	)

	lvl, err := Parse("  ", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if lvl.Name != Unknown {
		t.Errorf("Name = %q, want %q", lvl.Name, Unknown)
	}
	if lvl.Author != Unknown {
		t.Errorf("Author = %q, want %q", lvl.Author, Unknown)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty file", []byte(""), ErrEmptyFile},
		{"too few lines", levelText("a,b,c", "camera"), ErrMalformed},
		{"short header", levelText("a,b", "camera", "1,2,3,4,0,0"), ErrMalformed},
		{"bad skybox", levelText("a,b,c", "camera", "1,2,3,4,x,0"), ErrMalformed},
		{"bad ground", levelText("a,b,c", "camera", "1,2,3,4,0,x"), ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test", tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTimesFallback(t *testing.T) {
	tests := []struct {
		name  string
		times string
	}{
		{"not a number", "x,2,3,4,0,0"},
		{"nan", "NaN,2,3,4,0,0"},
		{"infinity", "+Inf,2,3,4,0,0"},
		{"too few fields", "1,2,3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := levelText("a,b,c", "camera", tt.times, "1,0", "2,0")
			lvl, err := Parse("test", data)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if lvl.Times.Valid {
				t.Error("Times.Valid = true, want false")
			}
			if lvl.Times != (Times{}) {
				t.Errorf("Times = %+v, want all zero", lvl.Times)
			}
			if lvl.Valid() {
				t.Error("Valid() = true, want false")
			}
		})
	}
}

func TestParseEnvironmentUnknown(t *testing.T) {
	// Times line with four fields: medal times parse but the environment
	// is unknown.
	data := levelText("a,b,c", "camera", "1,2,3,4", "1,0", "2,0")

	lvl, err := Parse("test", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !lvl.Times.Valid {
		t.Error("Times.Valid = false, want true")
	}
	if lvl.Environment.Skybox != math.MaxInt32 || lvl.Environment.Ground != math.MaxInt32 {
		t.Errorf("Environment = %+v, want MaxInt32 pair", lvl.Environment)
	}
	if len(lvl.Warnings) == 0 {
		t.Error("expected a warning about the environment")
	}
}

func TestTrackValidity(t *testing.T) {
	tests := []struct {
		name   string
		blocks []string
		want   bool
	}{
		{"one start one finish", []string{"1,0", "2,0"}, true},
		{"alt start and finish ids", []string{"1363,0", "1616,0"}, true},
		{"multiple finishes ok", []string{"1,0", "2,0", "1273,0"}, true},
		{"no start", []string{"2,0"}, false},
		{"two starts", []string{"1,0", "1,1", "2,0"}, false},
		{"no finish", []string{"1,0", "22,0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := append([]string{"a,b,c", "camera", "1,2,3,4,0,0"}, tt.blocks...)
			lvl, err := Parse("test", levelText(lines...))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if lvl.TrackValid != tt.want {
				t.Errorf("TrackValid = %v, want %v", lvl.TrackValid, tt.want)
			}
		})
	}
}

func TestParseBlockHistogram(t *testing.T) {
	data := levelText(
		"a,b,c",
		"camera",
		"1,2,3,4,0,0",
		"5,0,0",
		"7,0,0",
		"5,1,1",
		"noCommaHere",
		"5,2,2",
	)

	lvl, err := Parse("test", data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []BlockCount{{ID: "5", Count: 3}, {ID: "7", Count: 1}}
	if len(lvl.Blocks) != len(want) {
		t.Fatalf("Blocks = %v, want %v", lvl.Blocks, want)
	}
	for i := range want {
		if lvl.Blocks[i] != want[i] {
			t.Errorf("Blocks[%d] = %v, want %v", i, lvl.Blocks[i], want[i])
		}
	}
	if len(lvl.Warnings) != 1 {
		t.Errorf("Warnings = %v, want one entry for the comma-less line", lvl.Warnings)
	}

	got, err := lvl.SerializeBlocks()
	if err != nil {
		t.Fatalf("SerializeBlocks() error = %v", err)
	}
	if got != "5:3|7:1" {
		t.Errorf("SerializeBlocks() = %q, want %q", got, "5:3|7:1")
	}
}

func TestParseNoBlocks(t *testing.T) {
	data := levelText("a,alice,uid-9", "camera", "1,2,3,4,0,0")

	lvl, err := Parse("test", data)
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil (blockless levels still parse)", err)
	}
	if lvl.UID != "uid-9" {
		t.Errorf("UID = %q, want %q", lvl.UID, "uid-9")
	}
	if lvl.ContentHash == "" {
		t.Error("ContentHash is empty")
	}

	if _, err := lvl.SerializeBlocks(); !errors.Is(err, ErrNoBlocks) {
		t.Errorf("SerializeBlocks() error = %v, want ErrNoBlocks", err)
	}
}

func TestParseCRLF(t *testing.T) {
	unix := levelText("a,b,c", "camera", "1,2,3,4,0,0", "1,0", "2,0")
	dos := []byte(strings.ReplaceAll(string(unix), "\n", "\r\n"))

	lvlUnix, err := Parse("test", unix)
	if err != nil {
		t.Fatalf("Parse(unix) error = %v", err)
	}
	lvlDos, err := Parse("test", dos)
	if err != nil {
		t.Fatalf("Parse(dos) error = %v", err)
	}
	if lvlUnix.ContentHash != lvlDos.ContentHash {
		t.Errorf("hash differs across line endings: %q vs %q", lvlUnix.ContentHash, lvlDos.ContentHash)
	}
}

func TestContentHashCanonicalization(t *testing.T) {
	base := []string{"a,alice,uid-1", "camera", "1,2,3,4,7,8", "1,0", "2,0"}

	t.Run("header and times do not affect the hash", func(t *testing.T) {
		other := []string{"z,bob,uid-2", "different camera", "9,9,9,9,7,8", "1,0", "2,0"}
		if ContentHash(base) != ContentHash(other) {
			t.Error("hash changed although blocks and environment are identical")
		}
	})

	t.Run("environment affects the hash", func(t *testing.T) {
		other := []string{"a,alice,uid-1", "camera", "1,2,3,4,7,9", "1,0", "2,0"}
		if ContentHash(base) == ContentHash(other) {
			t.Error("hash unchanged although the ground id differs")
		}
	})

	t.Run("blocks affect the hash", func(t *testing.T) {
		other := []string{"a,alice,uid-1", "camera", "1,2,3,4,7,8", "1,0", "2,1"}
		if ContentHash(base) == ContentHash(other) {
			t.Error("hash unchanged although a block line differs")
		}
	})

	t.Run("missing environment hashes as unknown", func(t *testing.T) {
		fourFields := []string{"a,alice,uid-1", "camera", "1,2,3,4", "1,0", "2,0"}
		sevenFields := []string{"a,alice,uid-1", "camera", "1,2,3,4,7,8,9", "1,0", "2,0"}
		if ContentHash(fourFields) != ContentHash(sevenFields) {
			t.Error("both malformed times lines should canonicalize to the same trailer")
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		if ContentHash(base) != ContentHash(base) {
			t.Error("hash is not deterministic")
		}
	})
}
