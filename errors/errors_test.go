package errors_test

import (
	"testing"

	"github.com/kallistipsx/gopsx/errors"
)

func TestErrorf(t *testing.T) {
	err := errors.Errorf(errors.UnknownMnemonic, "frob")
	if err.Error() != `unknown mnemonic "frob"` {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestCategorized(t *testing.T) {
	err := errors.Categorized(errors.CategoryDMA, errors.DMANotReady, 3)
	if errors.CategoryOf(err) != errors.CategoryDMA {
		t.Fatalf("expected CategoryDMA, got %v", errors.CategoryOf(err))
	}
	if !errors.Is(err, errors.DMANotReady) {
		t.Fatalf("expected Is to match DMANotReady template")
	}
	if errors.Is(err, errors.UnknownCommand) {
		t.Fatalf("expected Is to reject unrelated template")
	}
}

func TestCategoryOfPlainError(t *testing.T) {
	if errors.CategoryOf(nil) != errors.CategoryNone {
		t.Fatalf("expected CategoryNone for nil error")
	}
}
