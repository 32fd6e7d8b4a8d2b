// Package help holds the text shown by "njil help".
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/stdlib"
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/tools"
)

// Version is the language and runtime version.
const Version = "0.4.0"

// TopicList is the display order of the help topics.
var TopicList = []string{"syntax", "values", "control", "modules", "packs", "errors", "cli", "examples"}

// QUICKREF is printed by "njil help" without a topic.
var QUICKREF = `NeoJiLang v0.4 quick reference

A document is JSON (comments allowed) or YAML. Every node is a literal or a
single-key instruction object: {"name": payload}.

  Program   {"import": [...], "program": {"main": {"body": [...]}}}
  Script    [ statement, statement, ... ]     every builtin pack loaded
  Module    {"module": "m", "exports": {"constants": {}, "functions": {}}}

  {"var.set": {"name": "x", "value": 5}}      {"var": "x"}   {"var": "a.b[0]"}
  {"const.set": {"name": "K", "value": 1}}    {"const": "K"}
  {"math.add": [{"var": "x"}, 3]}             {"print": "x=${var:x}"}
  {"if": {"condition": ..., "then": [...], "else": [...]}}
  {"call": {"name": "fn", "args": [...]}}     {"return": value}

Topics: syntax, values, control, modules, packs, errors, cli, examples
Run "njil help <topic>" for details.
`

// Topics maps a topic name to its text.
var Topics = map[string]string{
	"syntax": `SYNTAX

Documents
  .json .njil .njis .njim   JSON; // and /* */ comments are stripped
  .yaml .yml                YAML with the same structure
  other extensions          detected from the first character

Evaluation
  - Literals (null, booleans, numbers, strings, arrays) evaluate to themselves.
    Arrays are not evaluated: use {"json.new": [...]} to evaluate members.
  - An object with exactly one key is an instruction when the key is known.
  - An object with several keys is a literal record.
  - {"var": "a.b[1]"} and {"const": "ns.NAME"} read nested paths.
  - With --implicit-paths, {"user.name": null} reads the variable user.

Interpolation (print, string.concat, string.format)
  ${var:path}    variable value, or undefined:path
  ${const:path}  constant value, left as written when missing
`,
	"values": `VALUES

  null  boolean  number  string  array  object

Conversions (type.convert {value, type} or type.bool / type.number / ...)
  to boolean   null, false, 0, "", [] and {} are false
  to number    strings are parsed (null when they do not), true is 1,
               arrays and objects give their length
  to string    numbers without trailing zeros, objects as JSON
  to array     strings split into characters, objects into entries
  to object    arrays and strings keyed by index

Arithmetic
  math.add        numbers add; a string on either side concatenates;
                  an array on either side appends; objects merge
  math.subtract   math.multiply   math.divide (x / 0 is null)
  math.modulo     math.compare {left, operator, right}
  math.max        math.min
`,
	"control": `CONTROL FLOW

  if            {"condition": c, "then": [...], "else": [...]}
                an undefined variable in the condition counts as false
  loop.while    {"condition": c, "body": [...]}
  loop.for      {"count": n, "var": "i", "body": [...]}
  loop.foreach  {"collection": xs, "var": "x", "index": "i", "body": [...]}
  loop.break    loop.continue
  return        ends the current function
  throw         raises any value
  try           {"try": [...], "catch": {"var": "e", "body": [...]}, "finally": [...]}
                runtime errors are caught as {"code", "message"}
`,
	"modules": `MODULES

A module (.njim) exports constants and functions under a namespace:

  {"module": "geometry", "namespace": "geo",
   "exports": {"constants": {"PI": 3.14159},
               "functions": {"area": {"params": ["r"], "body": [{"return": ...}]}}}}

Every exported function must contain a top-level return statement.

Import from a program:  {"import": ["geometry", "lib/util.njim", "!io"]}
  "name" or "file.njim"  searched next to the document, then in modules/
                         and every --module-path / module_paths entry
  "/path.njim"           relative to the project root
  "!pack"                activates a builtin pack

Exports are used as {"const": "geo.PI"} and {"call": {"name": "geo.area"}}.
Importing a module twice publishes it once; import cycles are errors.
`,
	"packs": `BUILTIN PACKS (import with "!name"; scripts load all of them)

  io        io.readFile io.writeFile io.readLine io.input
            encodings: utf8 gbk gb2312 gb18030; compression: gzip zstd
  datetime  date time datetime.now datetime.parse (strftime formats, locales)
  system    system.fs.* (fs.exists fs.mkdir fs.copy ...), system.process.exec,
            system.env, system.uuid
  shell     shell.color shell.style shell.write shell.write_line
            shell.clear_line shell.overwrite
  http      http.get http.post http.request
  db        db.open db.query db.exec db.begin db.commit db.rollback db.close
            drivers: sqlite mysql postgres

Run "njil help --index" for every instruction name.
`,
	"errors": `ERRORS

  E_IO               file could not be read or written
  E_PARSE            malformed JSON or YAML
  E_DOC              document shape is wrong
  E_UNKNOWN_INSTR    no instruction with that name
  E_ARGS             bad instruction payload
  E_TYPE             wrong value type
  E_PATH             malformed path
  E_UNDEFINED_VAR    variable is not set
  E_UNDEFINED_CONST  constant is not set
  E_CONST_REDEFINED  constants are write-once
  E_UNKNOWN_FN       no function with that name
  E_NO_RETURN        function finished without return
  E_SIGNAL           break or continue outside a loop
  E_THROWN           uncaught throw
  E_MODULE           module not found or invalid
  E_MODULE_CYCLE     modules import each other
  E_UNKNOWN_PACK     no builtin pack with that name
  E_PACK             a pack operation failed
  E_CANCELLED        the run was interrupted

Exit codes: 0 success, 1 usage or I/O, 2 parse or validation, 4 runtime.
`,
	"cli": `COMMANDS

  njil run <file|->      run a program or script
      --pretty  --implicit-paths  --module-path <dir>  --trace <file.jsonl>
      --config <file>  --verbose  --njil-debug
  njil check <file>      parse and validate, warnings included
  njil fmt <file>        canonical layout (--write, --yaml)
  njil repl              interactive session (:vars :consts :help :quit)
  njil watch <file>      re-run when the file or its modules change
  njil trace <file>      summarise a trace (--text)
  njil help [topic]      this help
  njil version

Settings are read from njil.yaml, then ~/.njil/config.yaml.
`,
	"examples": `EXAMPLES

Hello:
  [{"print": "hello"}]

Function with parameters:
  {"program": {
    "main":   {"body": [{"return": {"call": {"name": "square", "args": [7]}}}]},
    "square": {"params": ["n"], "body": [{"return": {"math.multiply": [{"var": "n"}, {"var": "n"}]}}]}
  }}

Loop with an accumulator:
  [{"var.set": {"name": "sum", "value": 0}},
   {"loop.for": {"count": 5, "var": "i", "body": [
     {"var.set": {"name": "sum", "value": {"math.add": [{"var": "sum"}, {"var": "i"}]}}}]}},
   {"return": {"var": "sum"}}]

Catching an error:
  [{"try": {"try": [{"throw": "bad"}],
            "catch": {"var": "e", "body": [{"return": {"var": "e"}}]}}}]
`,
}

// MatchTopic resolves a topic by exact name, then unique prefix, then
// closest fuzzy match.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}
	var prefixed []string
	for _, name := range TopicList {
		if q != "" && strings.HasPrefix(name, q) {
			prefixed = append(prefixed, name)
		}
	}
	if len(prefixed) == 1 {
		return prefixed[0], Topics[prefixed[0]], nil
	}
	if len(prefixed) > 1 {
		return "", "", fmt.Errorf("ambiguous topic %q: %s", query, strings.Join(prefixed, ", "))
	}
	if q != "" {
		ranks := fuzzy.RankFindFold(q, TopicList)
		sort.Sort(ranks)
		if len(ranks) > 0 {
			name := ranks[0].Target
			return name, Topics[name], nil
		}
	}
	return "", "", fmt.Errorf("unknown help topic %q", query)
}

// Index lists every instruction of the core pack and the builtin packs.
func Index() string {
	packs := []*evaluator.Pack{stdlib.Pack()}
	for _, name := range tools.Names() {
		p, _ := tools.Lookup(name)
		packs = append(packs, p)
	}

	var b strings.Builder
	total := 0
	for _, p := range packs {
		fmt.Fprintf(&b, "%s: %s\n", p.Name, p.Description)
		for _, h := range p.Handlers {
			line := "  " + h.Name()
			if aliases := h.Aliases(); len(aliases) > 0 {
				line += " (" + strings.Join(aliases, ", ") + ")"
			}
			b.WriteString(line + "\n")
			total++
		}
	}
	fmt.Fprintf(&b, "\nTotal: %d instructions in %d packs\n", total, len(packs))
	return b.String()
}
