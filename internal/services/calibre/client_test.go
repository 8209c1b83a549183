package calibre_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"spines/internal/services"
	"spines/internal/services/calibre"
	"spines/internal/services/command"
)

const sampleMeta = `Title               : The Pragmatic Programmer
Author(s)           : Andrew Hunt & David Thomas [Hunt, Andrew & Thomas, David]
Publisher           : Addison-Wesley
Published           : 1999-10-20T00:00:00+00:00
Identifiers         : isbn:9780201616224
Languages           : eng
`

func TestParseMetadata(t *testing.T) {
	meta := calibre.ParseMetadata(sampleMeta)
	if meta.Title != "The Pragmatic Programmer" {
		t.Fatalf("unexpected title %q", meta.Title)
	}
	if meta.Authors != "Andrew Hunt & David Thomas" {
		t.Fatalf("unexpected authors %q", meta.Authors)
	}
	if meta.Publisher != "Addison-Wesley" {
		t.Fatalf("unexpected publisher %q", meta.Publisher)
	}
	if meta.Published == "" {
		t.Fatal("expected published value")
	}
	if len(meta.IdentifierLines) != 1 {
		t.Fatalf("expected one identifier line, got %v", meta.IdentifierLines)
	}
}

func TestReadMetadataUsesExecutor(t *testing.T) {
	var gotBinary string
	var gotArgs []string
	exec := command.Func(func(_ context.Context, binary string, args ...string) ([]byte, error) {
		gotBinary, gotArgs = binary, args
		return []byte(sampleMeta), nil
	})
	client := calibre.New(calibre.WithExecutor(exec), calibre.WithBinaries("/opt/calibre/ebook-meta", ""))

	meta, err := client.ReadMetadata(context.Background(), "/tmp/book.epub")
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if gotBinary != "/opt/calibre/ebook-meta" || len(gotArgs) != 1 || gotArgs[0] != "/tmp/book.epub" {
		t.Fatalf("unexpected invocation %s %v", gotBinary, gotArgs)
	}
	if meta.Title == "" {
		t.Fatal("expected parsed title")
	}
}

func TestReadMetadataEmptyOutput(t *testing.T) {
	exec := command.Func(func(context.Context, string, ...string) ([]byte, error) { return []byte("  \n"), nil })
	_, err := calibre.New(calibre.WithExecutor(exec)).ReadMetadata(context.Background(), "x.pdf")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestConvertToTextReadsTarget(t *testing.T) {
	exec := command.Func(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		if len(args) != 2 {
			t.Fatalf("expected source and target args, got %v", args)
		}
		return nil, os.WriteFile(args[1], []byte("converted body text"), 0o644)
	})
	client := calibre.New(calibre.WithExecutor(exec))

	text, err := client.ConvertToText(context.Background(), "/tmp/book.mobi", t.TempDir())
	if err != nil {
		t.Fatalf("ConvertToText: %v", err)
	}
	if text != "converted body text" {
		t.Fatalf("unexpected text %q", text)
	}
}
