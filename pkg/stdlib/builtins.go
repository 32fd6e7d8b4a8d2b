package stdlib

import (
	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/evaluator"
)

var instr = evaluator.NewInstruction

func handlers() []evaluator.Handler {
	return []evaluator.Handler{
		// Variables and constants
		instr("var", stdlibVar),
		instr("var.set", stdlibVarSet),
		instr("const", stdlibConst),
		instr("const.set", stdlibConstSet),
		instr("const.set.m", stdlibConstSetMany, "const.m"),
		instr("const.has", stdlibConstHas, "const.exists", "has_constant"),

		// Arithmetic
		instr("math.add", stdlibMathAdd, "add"),
		instr("math.subtract", stdlibMathSubtract, "subtract", "sub"),
		instr("math.multiply", stdlibMathMultiply, "multiply", "mul"),
		instr("math.divide", stdlibMathDivide, "divide", "div"),
		instr("math.modulo", stdlibMathModulo, "modulo", "mod"),
		instr("math.compare", stdlibMathCompare, "compare", "cmp"),
		instr("math.max", stdlibMathMax),
		instr("math.min", stdlibMathMin),

		// Logic
		instr("logic.and", stdlibAnd, "and"),
		instr("logic.or", stdlibOr, "or"),
		instr("logic.not", stdlibNot, "not"),

		// Functions
		instr("function.call", stdlibCall, "call", "func.call"),

		// Control flow
		instr("if", stdlibIf, "if.else"),
		instr("loop.while", stdlibWhile, "while"),
		instr("loop.for", stdlibFor, "for"),
		instr("loop.foreach", stdlibForeach, "foreach"),
		instr("loop.break", stdlibBreak, "break"),
		instr("loop.continue", stdlibContinue, "continue"),
		instr("return", stdlibReturn),
		instr("throw", stdlibThrow),
		instr("try", stdlibTry, "try.catch"),

		// Types
		instr("type.convert", stdlibConvert, "convert"),
		instr("type.bool", convertTo("boolean"), "to_bool", "bool"),
		instr("type.number", convertTo("number"), "to_number", "number"),
		instr("type.string", convertTo("string"), "to_string", "string"),
		instr("type.array", convertTo("array"), "to_array", "array"),
		instr("type.object", convertTo("object"), "to_object", "object"),
		instr("type.of", stdlibTypeOf, "typeof"),

		// Strings
		instr("string.concat", stdlibStrConcat, "txtlink"),
		instr("string.split", stdlibStrSplit),
		instr("string.replace", stdlibStrReplace),
		instr("string.trim", stdlibStrTrim),
		instr("string.format", stdlibStrFormat),
		instr("string.length", stdlibStrLength),
		instr("string.upper", stdlibStrCase(caseUpper)),
		instr("string.lower", stdlibStrCase(caseLower)),
		instr("string.title", stdlibStrCase(caseTitle)),
		instr("string.markdown", stdlibStrMarkdown),

		// Structured values
		instr("json.new", stdlibJSONNew),
		instr("json.get", stdlibJSONGet),
		instr("json.set", stdlibJSONSet),
		instr("json.parse", stdlibJSONParse),
		instr("json.stringify", stdlibJSONStringify),

		// Output and timing
		instr("print", stdlibPrint),
		instr("sleep", stdlibSleep, "delay", "wait"),
	}
}
