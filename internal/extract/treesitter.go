package extract

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	csharpforest "github.com/alexaandru/go-sitter-forest/c_sharp"
	phpforest "github.com/alexaandru/go-sitter-forest/php"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Language identifies a grammar known to the tree-sitter extractor.
type Language string

const (
	CSharp Language = "csharp"
	PHP    Language = "php"
)

type grammar struct {
	language func() *sitter.Language
	query    string
}

var grammars = map[Language]grammar{
	CSharp: {
		language: func() *sitter.Language { return sitter.NewLanguage(csharpforest.GetLanguage()) },
		query: `
		  (invocation_expression
		    function: (identifier) @func-name
		    arguments: (argument_list) @args)
		  (invocation_expression
		    function: (member_access_expression name: (identifier) @func-name)
		    arguments: (argument_list) @args)
		`,
	},
	PHP: {
		language: func() *sitter.Language { return sitter.NewLanguage(phpforest.GetLanguage()) },
		query: `
		  (function_call_expression
		    function: (name) @func-name
		    arguments: (arguments) @args)
		  (member_call_expression
		    name: (name) @func-name
		    arguments: (arguments) @args)
		  (scoped_call_expression
		    name: (name) @func-name
		    arguments: (arguments) @args)
		`,
	},
}

var errEmptyTree = errors.New("parser returned no tree")

// TreeSitter extracts calls from a syntax tree. The first argument of each
// matched call goes through the same literal grammar as the regex scanner.
type TreeSitter struct {
	mu       sync.Mutex
	language Language
	parser   *sitter.Parser
	query    *sitter.Query
}

// NewTreeSitter loads the grammar and call query for language.
func NewTreeSitter(language Language) (*TreeSitter, error) {
	g, ok := grammars[language]
	if !ok {
		return nil, fmt.Errorf("no grammar for language %q", language)
	}
	lang := g.language()
	p := sitter.NewParser()
	if !p.SetLanguage(lang) {
		return nil, fmt.Errorf("loading %s grammar", language)
	}
	q, err := sitter.NewQuery(lang, []byte(g.query))
	if err != nil {
		return nil, fmt.Errorf("compiling %s call query: %w", language, err)
	}
	return &TreeSitter{language: language, parser: p, query: q}, nil
}

func (ts *TreeSitter) Language() Language {
	return ts.language
}

func (ts *TreeSitter) FindAllCalls(text string, funcs []string) ([]Call, error) {
	if len(funcs) == 0 {
		funcs = DefaultFunctions
	}
	content := []byte(text)

	ts.mu.Lock()
	tree, err := ts.parser.ParseString(context.Background(), nil, content)
	ts.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("parsing %s source: %w", ts.language, err)
	}
	if tree == nil {
		return nil, errEmptyTree
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errEmptyTree
	}

	var calls []Call
	qc := sitter.NewQueryCursor()
	it := qc.Matches(ts.query, root, content)
	for {
		m := it.Next()
		if m == nil {
			break
		}

		var nameNode, argsNode *sitter.Node
		for _, c := range m.Captures {
			switch ts.query.CaptureNameForID(c.Index) {
			case "func-name":
				nameNode = &c.Node
			case "args":
				argsNode = &c.Node
			}
		}
		if nameNode == nil || argsNode == nil {
			continue
		}

		name := nameNode.Content(content)
		if !slices.Contains(funcs, name) {
			continue
		}

		start, end := int(argsNode.StartByte()), int(argsNode.EndByte())
		if end-start < 2 || content[start] != '(' || content[end-1] != ')' {
			continue
		}
		lit, ok := ParseLeadingLiteral(text[start+1:end-1], start+1)
		if !ok {
			continue
		}
		calls = append(calls, Call{
			Key:       lit.Value,
			KeyStart:  lit.Start,
			KeyEnd:    lit.End,
			CallStart: int(nameNode.StartByte()),
			CallEnd:   end,
			Function:  name,
			Verbatim:  lit.Verbatim,
		})
	}

	slices.SortFunc(calls, func(a, b Call) int { return a.CallStart - b.CallStart })
	return calls, nil
}
