package sandbox

import (
	"fmt"
	"regexp"
	"strings"
)

// Transpile strips the TypeScript type syntax our own codegen emits — and
// the conservative subset of hand-written TypeScript a script author might
// use alongside it — down to runnable JavaScript.
//
// It does not implement a full TypeScript parser. It masks string, template,
// and comment contents so they're immune to the substitutions below, then
// removes (in order): interface declarations, top-level type aliases,
// "declare"/"namespace" wrappers already consumed by codegen, function
// return type annotations, parameter and variable type annotations, generic
// type parameter lists, "as Type" casts, "!" non-null assertions, and a
// line-leading "export" keyword (except "export default"). Anything
// outside that set (decorators, enums, abstract classes) is passed through
// unchanged and will fail at runtime if the script actually needed it —
// acceptable for the narrow surface code-mode scripts use.
func Transpile(code string) (string, error) {
	masked := mask(code)

	out := code
	var err error

	out, masked, err = stripBraceBlocks(out, masked, interfaceStart)
	if err != nil {
		return "", fmt.Errorf("sandbox: transpile: %w", err)
	}

	out, masked = stripTypeAliases(out, masked)
	out, masked = stripDeclareNamespace(out, masked)

	out = stripAnnotations(out, masked)

	return out, nil
}

// mask returns a same-length copy of code with the contents of string
// literals, template literals, and comments replaced by spaces, so later
// passes can scan for keywords/braces without tripping over lookalike text
// inside user data.
func mask(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	runes := []rune(code)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == '/' && i+1 < len(runes) && runes[i+1] == '/':
			for i < len(runes) && runes[i] != '\n' {
				b.WriteByte(' ')
				i++
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			b.WriteString("  ")
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				if runes[i] == '\n' {
					b.WriteByte('\n')
				} else {
					b.WriteByte(' ')
				}
				i++
			}
			if i+1 < len(runes) {
				b.WriteString("  ")
				i += 2
			}
		case r == '\'' || r == '"' || r == '`':
			quote := r
			b.WriteByte(' ')
			i++
			for i < len(runes) && runes[i] != quote {
				if runes[i] == '\\' && i+1 < len(runes) {
					b.WriteByte(' ')
					i++
				}
				if runes[i] == '\n' {
					b.WriteByte('\n')
				} else {
					b.WriteByte(' ')
				}
				i++
			}
			if i < len(runes) {
				b.WriteByte(' ')
				i++
			}
		default:
			b.WriteRune(r)
			i++
		}
	}
	return b.String()
}

var interfaceStart = regexp.MustCompile(`(?m)^[ \t]*(export[ \t]+)?interface[ \t]+\w+[^{]*\{`)

// stripBraceBlocks removes every block whose opening matches startRE,
// balancing braces against the masked text so nested braces inside the
// block (e.g. nested object type literals) are handled correctly.
func stripBraceBlocks(code, masked string, startRE *regexp.Regexp) (string, string, error) {
	for {
		loc := startRE.FindStringIndex(masked)
		if loc == nil {
			return code, masked, nil
		}
		openBrace := strings.LastIndexByte(masked[:loc[1]], '{')
		end, err := matchBrace(masked, openBrace)
		if err != nil {
			return "", "", err
		}
		code = code[:loc[0]] + code[end+1:]
		masked = masked[:loc[0]] + masked[end+1:]
	}
}

// matchBrace returns the index of the brace matching the '{' at openIdx.
func matchBrace(s string, openIdx int) (int, error) {
	depth := 0
	for i := openIdx; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced braces")
}

var typeAliasRE = regexp.MustCompile(`(?ms)^[ \t]*(export[ \t]+)?type[ \t]+\w+(<[^=]*?>)?[ \t]*=.*?;[ \t]*$`)

func stripTypeAliases(code, masked string) (string, string) {
	for {
		loc := typeAliasRE.FindStringIndex(masked)
		if loc == nil {
			return code, masked
		}
		code = code[:loc[0]] + code[loc[1]:]
		masked = masked[:loc[0]] + masked[loc[1]:]
	}
}

var declareNamespaceStart = regexp.MustCompile(`(?m)^[ \t]*declare[ \t]+namespace[ \t]+\w+[ \t]*\{`)

func stripDeclareNamespace(code, masked string) (string, string) {
	out, outMasked, err := stripBraceBlocks(code, masked, declareNamespaceStart)
	if err != nil {
		return code, masked
	}
	return out, outMasked
}

var (
	paramAnnotationRE = regexp.MustCompile(`(\w|\])\s*:\s*[A-Za-z_][\w.<>\[\],| ]*(?:\s*\|\s*null)?(?=\s*[,)=])`)
	returnTypeRE      = regexp.MustCompile(`\)\s*:\s*[A-Za-z_][\w.<>\[\],| ]*(?=\s*(\{|=>))`)
	genericsRE        = regexp.MustCompile(`(\w)<[A-Za-z_][\w.,<> \[\]]*>(\()`)
	asCastRE          = regexp.MustCompile(`\s+as\s+[A-Za-z_][\w.<>\[\]]*`)
	nonNullRE         = regexp.MustCompile(`(\w)!(?=[.\s;,)])`)
	exportKeywordRE   = regexp.MustCompile(`(?m)^([ \t]*)export[ \t]+(?!default)`)
)

// stripAnnotations applies the remaining regex-based substitutions. Because
// these patterns only remove text, not braces, they're applied directly to
// code using masked solely to decide whether a candidate match falls inside
// a string (skipped if so).
func stripAnnotations(code, masked string) string {
	apply := func(re *regexp.Regexp, replace func(match []int) string) {
		for {
			loc := re.FindStringSubmatchIndex(code)
			if loc == nil {
				return
			}
			if strings.TrimSpace(masked[loc[0]:loc[1]]) == "" {
				// Fully inside masked (string/comment) text — not a real
				// match; bail to avoid an infinite loop on this pattern.
				return
			}
			code = code[:loc[0]] + replace(loc) + code[loc[1]:]
			masked = masked[:loc[0]] + strings.Repeat(" ", len(replace(loc))) + masked[loc[1]:]
		}
	}

	apply(returnTypeRE, func(loc []int) string { return ")" })
	apply(paramAnnotationRE, func(loc []int) string { return code[loc[2]:loc[3]] })
	apply(genericsRE, func(loc []int) string { return code[loc[2]:loc[3]] + code[loc[4]:loc[5]] })
	apply(asCastRE, func(loc []int) string { return "" })
	apply(nonNullRE, func(loc []int) string { return code[loc[2]:loc[3]] })
	apply(exportKeywordRE, func(loc []int) string { return code[loc[2]:loc[3]] })

	return code
}
