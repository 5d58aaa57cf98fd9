package gen

import (
	"go/token"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	wordPattern   = regexp.MustCompile(`[a-zA-Z0-9]+`)
	pascalPattern = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)
)

// identifierFromTitle converts a human readable title into a PascalCase
// identifier. Titles that do not start with a letter are prefixed with "T".
func identifierFromTitle(title string) string {
	// Casers keep state and must not be shared between goroutines.
	caser := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, w := range wordPattern.FindAllString(title, -1) {
		b.WriteString(caser.String(w))
	}
	name := b.String()
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "T" + name
	}
	return name
}

// isPascalCase reports whether name is a PascalCase identifier.
func isPascalCase(name string) bool { return pascalPattern.MatchString(name) }

// fieldName derives an exported Go field name from the last path segment of
// a base URL, e.g. "https://x/@a/types/property-type/first-name/" -> "FirstName".
func fieldName(base string) string {
	seg := lastSegment(base)
	name := inflect.Camelize(strings.ReplaceAll(seg, "-", "_"))
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "F" + name
	}
	return name
}

// graphQLFieldName is the lower camel variant of fieldName.
func graphQLFieldName(base string) string {
	seg := lastSegment(base)
	name := inflect.CamelizeDownFirst(strings.ReplaceAll(seg, "-", "_"))
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "f" + name
	}
	return name
}

func lastSegment(base string) string {
	s := strings.TrimSuffix(base, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// typeScriptReserved holds TypeScript reserved words and the names of
// built-in types a generated declaration must not shadow.
var typeScriptReserved = map[string]struct{}{
	"break": {}, "case": {}, "catch": {}, "class": {}, "const": {}, "continue": {},
	"debugger": {}, "default": {}, "delete": {}, "do": {}, "else": {}, "enum": {},
	"export": {}, "extends": {}, "false": {}, "finally": {}, "for": {}, "function": {},
	"if": {}, "import": {}, "in": {}, "instanceof": {}, "new": {}, "null": {},
	"return": {}, "super": {}, "switch": {}, "this": {}, "throw": {}, "true": {},
	"try": {}, "typeof": {}, "var": {}, "void": {}, "while": {}, "with": {},
	"as": {}, "implements": {}, "interface": {}, "let": {}, "package": {},
	"private": {}, "protected": {}, "public": {}, "static": {}, "yield": {},
	"any": {}, "boolean": {}, "constructor": {}, "declare": {}, "get": {},
	"module": {}, "require": {}, "number": {}, "set": {}, "string": {},
	"symbol": {}, "type": {}, "from": {}, "of": {}, "unknown": {}, "never": {},
	"object": {}, "bigint": {}, "undefined": {}, "keyof": {}, "readonly": {},
	"Object": {}, "String": {}, "Number": {}, "Boolean": {}, "Array": {},
	"Function": {}, "Symbol": {}, "Date": {}, "Error": {}, "Map": {}, "Set": {},
	"Promise": {}, "Record": {}, "Partial": {}, "Required": {}, "Readonly": {},
	"Entity": {}, "LinkData": {}, "JsonObject": {}, "LinkAndRightEntity": {},
}

// goReserved holds predeclared identifiers that exported names could shadow
// inside a generated package, beyond the language keywords.
var goReserved = map[string]struct{}{
	"TypedEntity": {}, "Entity": {}, "LinkData": {}, "BlockEntity": {},
}

// graphQLReserved holds the built-in scalars and the types every generated
// schema declares.
var graphQLReserved = map[string]struct{}{
	"Int": {}, "Float": {}, "String": {}, "Boolean": {}, "ID": {},
	"Query": {}, "Mutation": {}, "Subscription": {},
	"JSON": {}, "EntityRecordId": {}, "EntityMetadata": {}, "LinkData": {},
}

func isReservedTypeScript(name string) bool {
	_, ok := typeScriptReserved[name]
	return ok || strings.HasPrefix(name, "__")
}

func isReservedGo(name string) bool {
	_, ok := goReserved[name]
	return ok || token.IsKeyword(name)
}

func isReservedGraphQL(name string) bool {
	_, ok := graphQLReserved[name]
	return ok || strings.HasPrefix(name, "__")
}
