package lexer

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal

	// Literals
	TokenIdent  // counter, main
	TokenInt    // 42
	TokenString // "hello"
	TokenTrue   // true
	TokenFalse  // false

	// Keywords
	TokenFunc   // func
	TokenIntT   // int
	TokenBoolT  // bool
	TokenStrT   // str
	TokenIf     // if
	TokenElse   // else
	TokenWhile  // while
	TokenReturn // return
	TokenRead   // read
	TokenWrite  // write

	// Operators
	TokenPlus   // +
	TokenMinus  // -
	TokenStar   // *
	TokenSlash  // /
	TokenAssign // =
	TokenEq     // ==
	TokenNe     // !=
	TokenLt     // <
	TokenLe     // <=
	TokenGt     // >
	TokenGe     // >=
	TokenAnd    // &&
	TokenOr     // ||
	TokenNot    // !

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenSemicolon // ;
	TokenComma     // ,
	TokenColon     // :
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "EOF",
	TokenIllegal:   "ILLEGAL",
	TokenIdent:     "IDENT",
	TokenInt:       "INT",
	TokenString:    "STRING",
	TokenTrue:      "true",
	TokenFalse:     "false",
	TokenFunc:      "func",
	TokenIntT:      "int",
	TokenBoolT:     "bool",
	TokenStrT:      "str",
	TokenIf:        "if",
	TokenElse:      "else",
	TokenWhile:     "while",
	TokenReturn:    "return",
	TokenRead:      "read",
	TokenWrite:     "write",
	TokenPlus:      "+",
	TokenMinus:     "-",
	TokenStar:      "*",
	TokenSlash:     "/",
	TokenAssign:    "=",
	TokenEq:        "==",
	TokenNe:        "!=",
	TokenLt:        "<",
	TokenLe:        "<=",
	TokenGt:        ">",
	TokenGe:        ">=",
	TokenAnd:       "&&",
	TokenOr:        "||",
	TokenNot:       "!",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenLBrace:    "{",
	TokenRBrace:    "}",
	TokenSemicolon: ";",
	TokenComma:     ",",
	TokenColon:     ":",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsType reports whether the token names one of the builtin types
func (t TokenType) IsType() bool {
	return t == TokenIntT || t == TokenBoolT || t == TokenStrT
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// keywords maps keyword strings to token types
var keywords = map[string]TokenType{
	"func":   TokenFunc,
	"int":    TokenIntT,
	"bool":   TokenBoolT,
	"str":    TokenStrT,
	"if":     TokenIf,
	"else":   TokenElse,
	"while":  TokenWhile,
	"return": TokenReturn,
	"read":   TokenRead,
	"write":  TokenWrite,
}

// LookupIdent returns the token type for an identifier (keyword or IDENT).
// Boolean literals are matched case-insensitively.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	switch {
	case equalFold(ident, "true"):
		return TokenTrue
	case equalFold(ident, "false"):
		return TokenFalse
	}
	return TokenIdent
}

func equalFold(s, lower string) bool {
	if len(s) != len(lower) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != lower[i] {
			return false
		}
	}
	return true
}
