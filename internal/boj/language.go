package boj

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Language is a compiler choice on the submit form, identified by the code
// the site uses.
type Language int

// NoLanguage means no preference.
const NoLanguage Language = -1

// ErrUnknownLanguage is returned for codes or extensions nothing maps to.
var ErrUnknownLanguage = errors.New("unknown language")

type languageInfo struct {
	code Language
	name string
	ext  string
}

var languages = []languageInfo{
	{101, "C90", ".c"}, {103, "C90 (Clang)", ".c"}, {0, "C99", ".c"}, {59, "C99 (Clang)", ".c"},
	{75, "C11", ".c"}, {77, "C11 (Clang)", ".c"}, {102, "C2x", ".c"}, {104, "C2x (Clang)", ".c"},

	{1, "C++98", ".cc"}, {60, "C++98 (Clang)", ".cc"}, {49, "C++11", ".cc"}, {66, "C++11 (Clang)", ".cc"},
	{88, "C++14", ".cc"}, {67, "C++14 (Clang)", ".cc"}, {84, "C++17", ".cc"}, {85, "C++17 (Clang)", ".cc"},
	{95, "C++20", ".cc"}, {96, "C++20 (Clang)", ".cc"},

	{86, "C#", ".cs"}, {9, "C# 3.0 (Mono)", ".cs"}, {62, "C# 6.0 (Mono)", ".cs"},

	{6, "Python 2", ".py"}, {28, "Python 3", ".py"}, {32, "PyPy2", ".py"}, {73, "PyPy3", ".py"}, {81, "Haxe", ".py"},

	{3, "Java 8", ".java"}, {91, "Java 8 (OpenJDK)", ".java"}, {93, "Java 11", ".java"}, {107, "Java 15", ".java"},

	{69, "Kotlin (JVM)", ".kt"}, {92, "Kotlin (Native)", ".kt"},
	{44, "Rust 2015", ".rs"}, {94, "Rust 2018", ".rs"}, {113, "Rust 2021", ".rs"},
	{29, "D", ".d"}, {100, "D (LDC)", ".d"},
	{108, "F#", ".fs"}, {37, "F# (Mono)", ".fs"},
	{68, "Ruby", ".rb"}, {4, "Ruby 1.8", ".rb"}, {65, "Ruby 1.9", ".rb"},
	{12, "Go", ".go"}, {90, "Go (gccgo)", ".go"},
	{17, "node.js", ".js"}, {106, "TypeScript", ".js"}, {34, "Rhino", ".js"},
	{20, "VB.NET 2.0 (Mono)", ".vb"}, {63, "VB.NET 4.0 (Mono)", ".vb"}, {109, "Visual Basic", ".vb"},
	{27, "Assembly (32bit)", ".asm"}, {87, "Assembly (64bit)", ".asm"},

	{7, "PHP", ".php"}, {11, "Haskell", ".hs"}, {58, "Text", ".txt"}, {79, "Golfscript", ".gs"},
	{2, "Pascal", ".pas"}, {15, "Scala", ".scala"}, {16, "Lua", ".lua"}, {8, "Perl", ".pl"},
	{5, "Bash", ".sh"}, {13, "Fortran", ".f95"}, {14, "Scheme", ".scm"}, {19, "Ada", ".ada"},
	{21, "awk", ".awk"}, {22, "OCaml", ".ml"}, {23, "Brainf**k", ".bf"}, {24, "Whitespace", ".ws"},
	{26, "Tcl", ".tcl"}, {35, "Cobol", ".cob"}, {41, "Pike", ".pike"}, {43, "sed", ".sed"},
	{46, "Boo", ".boo"}, {78, "FreeBASIC", ".bas"}, {74, "Swift", ".swift"}, {10, "Objective-C", ".m"},
	{64, "Objective-C++", ".mm"}, {47, "INTERCAL", ".i"}, {48, "bc", ".bc"}, {53, "Nemerle", ".n"},
	{54, "Cobra", ".cobra"}, {55, "Nimrod", ".nim"}, {70, "Algol 68", ".a68"}, {71, "Befunge", ".bf"},
	{82, "LOLCODE", ".lol"}, {83, "아희", ".aheui"}, {98, "Coq", ".v"}, {99, "Minecraft", ".mca"},
	{105, "SystemVerilog", ".sv"}, {110, "APECODE", ".ape"}, {111, "Crystal", ".cr"}, {112, "엄준식", ".umm"},
}

var languageByCode = func() map[Language]languageInfo {
	m := make(map[Language]languageInfo, len(languages))
	for _, l := range languages {
		m[l.code] = l
	}
	return m
}()

// ParseLanguage validates a numeric language code.
func ParseLanguage(code int) (Language, error) {
	l := Language(code)
	if _, ok := languageByCode[l]; !ok {
		return NoLanguage, fmt.Errorf("%w: code %d", ErrUnknownLanguage, code)
	}
	return l, nil
}

func (l Language) String() string {
	if info, ok := languageByCode[l]; ok {
		return info.name
	}
	return fmt.Sprintf("Language(%d)", int(l))
}

// Extension is the source file extension, including the dot.
func (l Language) Extension() string {
	return languageByCode[l].ext
}

// LanguagesForExtension lists languages whose sources use ext, lowest code
// first. ext may omit the leading dot.
func LanguagesForExtension(ext string) []Language {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	var out []Language
	for _, l := range languages {
		if l.ext == ext {
			out = append(out, l.code)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// InferLanguage picks a language for the source file at path. When several
// languages share the extension, preferred wins if it is among them;
// otherwise the lowest code is used.
func InferLanguage(path string, preferred Language) (Language, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return NoLanguage, fmt.Errorf("%w: %q has no extension", ErrUnknownLanguage, path)
	}
	candidates := LanguagesForExtension(ext)
	if len(candidates) == 0 {
		return NoLanguage, fmt.Errorf("%w: extension %q", ErrUnknownLanguage, ext)
	}
	for _, c := range candidates {
		if c == preferred {
			return c, nil
		}
	}
	return candidates[0], nil
}
