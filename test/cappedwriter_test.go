package test_test

import (
	"testing"

	"github.com/kallistipsx/gopsx/test"
)

func TestCappedWriter(t *testing.T) {
	c, err := test.NewCappedWriter(10)
	test.NoFailure(t, err)

	test.Equate(t, c.String(), "")

	c.Write([]byte("a"))
	test.Equate(t, c.String(), "a")

	c.Write([]byte("bcd"))
	test.Equate(t, c.String(), "abcd")

	c.Write([]byte("efghij"))
	test.Equate(t, c.String(), "abcdefghij")

	c.Write([]byte("klm"))
	test.Equate(t, c.String(), "abcdefghij")

	c.Reset()
	test.Equate(t, c.String(), "")

	c.Write([]byte("abcdefghij"))
	test.Equate(t, c.String(), "abcdefghij")

	c.Reset()
	c.Write([]byte("abcdefghijklm"))
	test.Equate(t, c.String(), "abcdefghij")
}
