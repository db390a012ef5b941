package logger_test

import (
	"strings"
	"testing"

	"github.com/kallistipsx/gopsx/logger"
)

func TestLogger(t *testing.T) {
	logger.Clear()

	var w strings.Builder
	logger.Write(&w)
	if w.String() != "" {
		t.Fatalf("expected empty log, got %q", w.String())
	}

	logger.Log("test", "this is a test")

	w.Reset()
	logger.Write(&w)
	if w.String() != "test: this is a test\n" {
		t.Fatalf("unexpected log contents: %q", w.String())
	}

	logger.Log("test2", "this is another test")

	w.Reset()
	logger.Write(&w)
	want := "test: this is a test\ntest2: this is another test\n"
	if w.String() != want {
		t.Fatalf("got %q, want %q", w.String(), want)
	}

	w.Reset()
	logger.Tail(&w, 100)
	if w.String() != want {
		t.Fatalf("Tail(100) got %q, want %q", w.String(), want)
	}

	w.Reset()
	logger.Tail(&w, 2)
	if w.String() != want {
		t.Fatalf("Tail(2) got %q, want %q", w.String(), want)
	}

	w.Reset()
	logger.Tail(&w, 1)
	if w.String() != "test2: this is another test\n" {
		t.Fatalf("Tail(1) got %q", w.String())
	}

	w.Reset()
	logger.Tail(&w, 0)
	if w.String() != "" {
		t.Fatalf("Tail(0) got %q", w.String())
	}
}

func TestLoggerWraps(t *testing.T) {
	logger.Clear()

	for i := 0; i < 2000; i++ {
		logger.Logf("spam", "entry %d", i)
	}

	var w strings.Builder
	logger.Tail(&w, 1)
	if !strings.Contains(w.String(), "entry 1999") {
		t.Fatalf("expected most recent entry to survive wraparound, got %q", w.String())
	}
}
