package parser

import (
	"fmt"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language is the source language of a file.
type Language int

// Supported languages.
const (
	JavaScript Language = iota
	TypeScript
)

func (l Language) String() string {
	if l == TypeScript {
		return "typescript"
	}
	return "javascript"
}

// SourceType describes how a file's text is parsed. It is inferred from the
// file name's extension.
type SourceType struct {
	Language Language
	JSX      bool
	// Module is false for CommonJS (.cjs, .cts) files.
	Module bool
}

func (st SourceType) String() string {
	name := st.Language.String()
	if st.JSX {
		name += "+jsx"
	}
	if !st.Module {
		name += " (script)"
	}
	return name
}

// UnsupportedExtensionError is returned for file names with no known
// JavaScript or TypeScript extension.
type UnsupportedExtensionError struct {
	Name string
}

func (e *UnsupportedExtensionError) Error() string {
	return fmt.Sprintf("cannot infer source type of %q: unsupported extension", e.Name)
}

// Extensions lists the file extensions the parser accepts.
var Extensions = []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".mts", ".cts", ".tsx"}

// SourceTypeFromPath infers the source type from the extension of the last
// path element.
func SourceTypeFromPath(name string) (SourceType, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".js", ".mjs":
		// JSX is accepted in plain .js files the way most bundlers do.
		return SourceType{Language: JavaScript, JSX: true, Module: true}, nil
	case ".cjs":
		return SourceType{Language: JavaScript, JSX: true}, nil
	case ".jsx":
		return SourceType{Language: JavaScript, JSX: true, Module: true}, nil
	case ".ts", ".mts":
		return SourceType{Language: TypeScript, Module: true}, nil
	case ".cts":
		return SourceType{Language: TypeScript}, nil
	case ".tsx":
		return SourceType{Language: TypeScript, JSX: true, Module: true}, nil
	default:
		return SourceType{}, &UnsupportedExtensionError{Name: name}
	}
}

// IsSupported reports whether name has a parseable extension.
func IsSupported(name string) bool {
	_, err := SourceTypeFromPath(name)
	return err == nil
}

// grammar returns the tree-sitter grammar for the source type.
func (st SourceType) grammar() *sitter.Language {
	switch {
	case st.Language == TypeScript && st.JSX:
		return tsx.GetLanguage()
	case st.Language == TypeScript:
		return typescript.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}
