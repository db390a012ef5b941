package assembler

// TokenKind enumerates the lexical categories produced by the lexer
// (§4.1).
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokDirective
	TokLabel
	TokIdent
	TokNum
	TokStr
	TokReg
	TokComma
	TokLParen
	TokRParen
)

// Directive identifies one of the data/section pseudo-ops introduced by a
// leading '.'.
type Directive int

const (
	DirText Directive = iota
	DirData
	DirWord
	DirHalfWord
	DirByte
	DirAscii
	DirAsciiz
)

var directiveNames = map[string]Directive{
	"text":     DirText,
	"data":     DirData,
	"word":     DirWord,
	"halfword": DirHalfWord,
	"byte":     DirByte,
	"ascii":    DirAscii,
	"asciiz":   DirAsciiz,
}

// Token is one lexical unit together with the source line it came from
// (1-indexed), used to tag assembler errors with a line number.
type Token struct {
	Kind      TokenKind
	Line      int
	Ident     string
	Num       uint32
	Str       string
	Reg       uint8
	Directive Directive
}
