// Package program defines the lexical token sequence the source
// highlighter consumes. Tokens are produced by the program editor's
// lexer, which lives outside this module; the highlighter only reads
// them and toggles their emphasis flags.
package program

// Lexeme categorizes a token.
type Lexeme int

// Lexeme categories used by the highlighter. The editor's lexer defines
// more; only these influence highlight placement.
const (
	LexemeDefault Lexeme = iota
	LexemeIdentifier
	LexemeDeclaration
	LexemeDeclarationOperator
	LexemeKeyword
	LexemeOpenBrace
	LexemeCloseBrace
	LexemeOpenParen
	LexemeCloseParen
)

// Token is one lexical token of the program source text. Emphasise is
// the only mutable field: the highlighter sets it while replaying and
// the text renderer reads it. The JSON shape is the interchange format
// the editor's lexer exports.
type Token struct {
	// Start and End delimit the matched substring in the source text.
	Start int `json:"start"`
	End   int `json:"end"`

	// Lexeme is the token's category.
	Lexeme Lexeme `json:"lexeme"`

	// Text is the matched source text.
	Text string `json:"text"`

	// Emphasise requests a highlighted rendering of this token.
	Emphasise bool `json:"-"`
}
