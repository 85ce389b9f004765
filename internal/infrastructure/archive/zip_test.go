package archive

import (
	stdzip "archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fileconv/internal/application/conversion"
)

func TestWrite_ArchiveContainsEveryMember(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "1.webp")
	b := filepath.Join(dir, "2.webp")
	_ = os.WriteFile(a, []byte(strings.Repeat("a", 4096)), 0o644)
	_ = os.WriteFile(b, []byte("bbb"), 0o644)

	target := filepath.Join(dir, "out.zip")
	err := NewWriter().Write(context.Background(), target, []conversion.ArchiveMember{
		{Name: "a.webp", Path: a},
		{Name: "b.webp", Path: b},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	zr, err := stdzip.OpenReader(target)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()

	if len(zr.File) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(zr.File))
	}
	want := map[string]string{"a.webp": strings.Repeat("a", 4096), "b.webp": "bbb"}
	for _, f := range zr.File {
		if f.Method != stdzip.Deflate {
			t.Fatalf("expected deflate for %s, got method %d", f.Name, f.Method)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		if string(data) != want[f.Name] {
			t.Fatalf("unexpected content for %s", f.Name)
		}
	}
	if zr.File[0].CompressedSize64 >= zr.File[0].UncompressedSize64 {
		t.Fatalf("expected repetitive member to compress")
	}
}

func TestWrite_MissingMemberRemovesPartialArchive(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.zip")

	err := NewWriter().Write(context.Background(), target, []conversion.ArchiveMember{
		{Name: "gone.webp", Path: filepath.Join(dir, "missing.webp")},
	})
	if err == nil {
		t.Fatalf("expected error for missing member")
	}
	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Fatalf("expected partial archive removed, stat err = %v", statErr)
	}
}
