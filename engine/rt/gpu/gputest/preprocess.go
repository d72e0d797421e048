package gputest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// source is a shader stage after conditional compilation.
type source struct {
	lines  []string
	errors []string
}

type condFrame struct {
	parentActive bool
	active       bool
	taken        bool
}

// preprocess evaluates #define/#ifdef/#ifndef/#if defined/#elif/#else/#endif
// and keeps the lines of active regions. #error in an active region is
// reported as a compile error, which is all the recorder needs to simulate a
// broken edit.
func preprocess(text string) source {
	defined := map[string]bool{}
	var stack []condFrame
	active := true
	var out source

	for n, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if !strings.HasPrefix(line, "#") {
			if active {
				out.lines = append(out.lines, raw)
			}
			continue
		}
		directive, rest, _ := strings.Cut(strings.TrimSpace(line[1:]), " ")
		rest = strings.TrimSpace(rest)

		switch directive {
		case "define":
			if active {
				name, _, _ := strings.Cut(rest, " ")
				defined[name] = true
			}
		case "undef":
			if active {
				delete(defined, rest)
			}
		case "ifdef", "ifndef", "if":
			var cond bool
			switch directive {
			case "ifdef":
				cond = defined[rest]
			case "ifndef":
				cond = !defined[rest]
			default:
				cond = evalCondition(rest, defined)
			}
			stack = append(stack, condFrame{parentActive: active, active: active && cond, taken: cond})
			active = active && cond
		case "elif":
			if len(stack) == 0 {
				out.errors = append(out.errors, fmt.Sprintf("0:%d: #elif without #if", n+1))
				continue
			}
			top := &stack[len(stack)-1]
			cond := !top.taken && evalCondition(rest, defined)
			top.active = top.parentActive && cond
			top.taken = top.taken || cond
			active = top.active
		case "else":
			if len(stack) == 0 {
				out.errors = append(out.errors, fmt.Sprintf("0:%d: #else without #if", n+1))
				continue
			}
			top := &stack[len(stack)-1]
			top.active = top.parentActive && !top.taken
			top.taken = true
			active = top.active
		case "endif":
			if len(stack) == 0 {
				out.errors = append(out.errors, fmt.Sprintf("0:%d: #endif without #if", n+1))
				continue
			}
			active = stack[len(stack)-1].parentActive
			stack = stack[:len(stack)-1]
		case "error":
			if active {
				out.errors = append(out.errors, fmt.Sprintf("0:%d: error: %s", n+1, rest))
			}
		}
	}
	if len(stack) > 0 {
		out.errors = append(out.errors, "0:0: unterminated #if")
	}
	return out
}

var definedRe = regexp.MustCompile(`^defined\s*\(?\s*(\w+)\s*\)?$`)

// evalCondition handles defined(X), !, && and ||, which is all the shader
// files use.
func evalCondition(expr string, defined map[string]bool) bool {
	for _, alt := range strings.Split(expr, "||") {
		all := true
		for _, term := range strings.Split(alt, "&&") {
			term = strings.TrimSpace(term)
			neg := false
			for strings.HasPrefix(term, "!") {
				neg = !neg
				term = strings.TrimSpace(term[1:])
			}
			var v bool
			if m := definedRe.FindStringSubmatch(term); m != nil {
				v = defined[m[1]]
			} else if n, err := strconv.Atoi(term); err == nil {
				v = n != 0
			}
			if v == neg {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

var (
	attribRe  = regexp.MustCompile(`^\s*layout\s*\(\s*location\s*=\s*(\d+)\s*\)\s*in\s+(\w+)\s+(\w+)\s*;`)
	uniformRe = regexp.MustCompile(`^\s*(?:layout\s*\([^)]*\)\s*)?uniform\s+(\w+)\s+(\w+)\s*(?:\[[^\]]*\])?\s*;`)
)

func components(glslType string) int32 {
	switch glslType {
	case "float", "int", "uint":
		return 1
	case "vec2", "ivec2", "uvec2":
		return 2
	case "vec3", "ivec3", "uvec3":
		return 3
	}
	return 4
}
