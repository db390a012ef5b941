// Package assembler implements the two-pass MIPS R3000 assembler used both
// as a development tool (cmd/gopsx-asm) and as the system's test driver:
// every end-to-end CPU/bus test in this module assembles a short program
// with this package rather than hand-encoding machine words.
package assembler

import "github.com/kallistipsx/gopsx/errors"

// Assemble lexes, parses and encodes a MIPS assembly source string into a
// flat code image based at the given address, returning the resolved entry
// point (always equal to base: execution starts at the first instruction
// of the stream) per §4.1.
func Assemble(source string, base uint32) (code []byte, entry uint32, err error) {
	toks, err := tokenize(source)
	if err != nil {
		return nil, 0, wrap(err)
	}

	nodes, err := parse(toks)
	if err != nil {
		return nil, 0, wrap(err)
	}

	g := newCodegen(base)
	if err := g.layout(nodes); err != nil {
		return nil, 0, wrap(err)
	}
	if err := g.encode(nodes); err != nil {
		return nil, 0, wrap(err)
	}

	return g.code, base, nil
}

// wrap lifts an internal *lexError into the module's curated error type so
// callers outside the assembler package can categorize and match on it the
// same way they do bus/CPU errors.
func wrap(err error) error {
	if le, ok := err.(*lexError); ok {
		return errors.Categorized(errors.CategoryAssembler, le.Error())
	}
	return errors.Categorized(errors.CategoryAssembler, err.Error())
}
