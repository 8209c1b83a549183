package tesseract_test

import (
	"context"
	"strings"
	"testing"

	"spines/internal/services/command"
	"spines/internal/services/tesseract"
)

func TestRecognizeInvocation(t *testing.T) {
	var got string
	exec := command.Func(func(_ context.Context, binary string, args ...string) ([]byte, error) {
		got = binary + " " + strings.Join(args, " ")
		return []byte("Recognised page text"), nil
	})
	client := tesseract.New(tesseract.WithExecutor(exec), tesseract.WithLanguage("deu"))

	text, err := client.Recognize(context.Background(), "/tmp/page-0001.png")
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if text != "Recognised page text" {
		t.Fatalf("unexpected text %q", text)
	}
	if got != "tesseract /tmp/page-0001.png stdout -l deu" {
		t.Fatalf("unexpected invocation %q", got)
	}
}
