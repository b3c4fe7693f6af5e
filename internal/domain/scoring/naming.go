package scoring

import (
	"go/ast"
	"go/token"
	"regexp"
	"strings"

	"github.com/fatih/camelcase"
)

// shortNames are canonical short method names exempt from the length rule.
var shortNames = map[string]bool{
	"Len": true, "Less": true, "Swap": true, "Get": true, "Set": true,
	"Put": true, "Add": true, "Run": true, "Err": true, "Key": true,
	"Pop": true, "Is": true, "As": true, "Has": true,
}

// verbs is the curated list of leading words a function name may start with.
var verbs = toSet(
	"get", "set", "is", "has", "can", "should", "add", "remove", "delete",
	"create", "make", "new", "build", "load", "save", "store", "read", "write",
	"open", "close", "start", "stop", "run", "init", "reset", "clear", "update",
	"apply", "compute", "calculate", "validate", "check", "parse", "format",
	"render", "send", "receive", "handle", "find", "search", "fetch", "list",
	"count", "sort", "filter", "merge", "split", "join", "convert", "encode",
	"decode", "register", "emit", "notify", "publish", "subscribe", "lock",
	"unlock", "wait", "flush", "copy", "clone", "compare", "match", "scan",
	"print", "log", "ensure", "try", "resolve", "extract", "replace",
	"transform", "generate", "invoke", "call", "dispatch", "evict", "insert",
	"push", "enqueue", "dequeue", "visit", "walk", "collect", "track",
	"record", "mark", "enable", "disable", "refresh", "normalize", "inc",
	"dec", "wrap", "describe", "select", "lookup", "to", "with", "must",
	"score", "detect", "analyze", "plan", "serve", "marshal", "unmarshal",
	"ping", "drop", "put", "pop", "swap", "less", "len", "err", "key", "as",
)

// acceptedNames are non-verb names with a well-known meaning in Go.
var acceptedNames = toSet(
	"string", "error", "gostring", "format", "unwrap", "marshaljson",
	"unmarshaljson", "marshaltext", "unmarshaltext", "marshalyaml",
	"unmarshalyaml", "servehttp", "main", "init",
)

var acceptedPattern = regexp.MustCompile(`^On[A-Z]\w*Changed$`)

// genericNames carry no meaning and cost more than other offenses.
var genericNames = toSet(
	"dowork", "process", "data", "handle", "execute", "manage", "util",
	"utils", "helper", "stuff", "thing", "item", "object", "temp", "foo",
	"bar", "dostuff", "info",
)

var vagueTypeSuffixes = []string{"Helper", "Manager", "Processor"}

// NamingQuality scores the identifiers declared in file from 0 to 100. It
// starts at 100 and deducts 5 per offense, 10 for generic names.
func NamingQuality(file *ast.File) int {
	score := 100
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			score -= funcNamePenalty(d)
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok {
					score -= typeNamePenalty(ts.Name.Name)
				}
			}
		}
	}
	return clampInt(score, 0, 100)
}

func funcNamePenalty(fd *ast.FuncDecl) int {
	name := fd.Name.Name
	if name == "_" || isTestFunc(name) {
		return 0
	}
	lower := strings.ToLower(name)
	if genericNames[lower] {
		return 10
	}
	penalty := 0
	if len(name) < 4 && !shortNames[exported(name)] {
		penalty += 5
	}
	if !startsWithVerb(name) && !acceptedNames[lower] && !acceptedPattern.MatchString(name) {
		penalty += 5
	}
	return penalty
}

func typeNamePenalty(name string) int {
	if genericNames[strings.ToLower(name)] {
		return 10
	}
	penalty := 0
	if len(name) < 4 {
		penalty += 5
	}
	for _, suffix := range vagueTypeSuffixes {
		if strings.HasSuffix(name, suffix) {
			penalty += 5
			break
		}
	}
	return penalty
}

func startsWithVerb(name string) bool {
	words := camelcase.Split(name)
	if len(words) == 0 {
		return false
	}
	return verbs[strings.ToLower(words[0])]
}

func isTestFunc(name string) bool {
	for _, p := range []string{"Test", "Benchmark", "Example", "Fuzz"} {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func exported(name string) string {
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
