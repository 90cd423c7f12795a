package shell

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// parsedArgs is the result of a successful CLI parse.
type parsedArgs struct {
	durationSeconds float64
	threads         int
	probeOutputPath string
	enabledProbes   []string
}

// startupError marks a CLI parsing failure, which Run turns into exit code
// 2; it holds the message already written to stderr.
type startupError struct {
	msg string
}

func (e *startupError) Error() string { return e.msg }

var floatPrefixRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// parseDuration accepts "inf", "<sec>", "<sec>s", or "<min>m".
func parseDuration(s string) (float64, bool) {
	if s == "inf" {
		return math.Inf(1), true
	}
	loc := floatPrefixRe.FindStringIndex(s)
	if loc == nil || loc[0] != 0 {
		return 0, false
	}
	base, err := strconv.ParseFloat(s[:loc[1]], 64)
	if err != nil {
		return 0, false
	}
	unit := s[loc[1]:]
	switch unit {
	case "", "s":
		return base, true
	case "m":
		return base * 60.0, true
	default:
		return 0, false
	}
}

// parseArgs replicates pipit::shell_main's CLI parsing loop, including its
// exact startup-error message text, against desc's descriptor tables.
// Errors are already written to stderr by the time a non-nil error is
// returned; callers should exit(2).
func parseArgs(args []string, desc *ProgramDesc) (parsedArgs, error) {
	out := parsedArgs{
		durationSeconds: math.Inf(1),
		probeOutputPath: "/dev/stderr",
	}

	fail := func(format string, a ...any) error {
		msg := fmt.Sprintf(format, a...)
		fmt.Fprint(os.Stderr, msg)
		return &startupError{msg: msg}
	}

	for i := 0; i < len(args); i++ {
		opt := args[i]
		switch opt {
		case "--param":
			if i+1 >= len(args) {
				return out, fail("startup error: --param requires name=value\n")
			}
			i++
			arg := args[i]
			eq := strings.IndexByte(arg, '=')
			if eq < 0 {
				return out, fail("startup error: --param requires name=value\n")
			}
			name, val := arg[:eq], arg[eq+1:]
			found := false
			for _, p := range desc.Params {
				if p.Name == name {
					if !p.Apply(val) {
						return out, fail("startup error: invalid value '%s' for param '%s'\n", val, name)
					}
					found = true
					break
				}
			}
			if !found {
				if len(desc.Params) == 0 {
					return out, fail("startup error: --param is unsupported (no runtime params)\n")
				}
				return out, fail("startup error: unknown param '%s'\n", name)
			}

		case "--duration":
			if i+1 >= len(args) {
				return out, fail("startup error: --duration requires a value\n")
			}
			i++
			d := args[i]
			parsed, ok := parseDuration(d)
			if !ok {
				return out, fail("startup error: invalid --duration '%s' (use <sec>, <sec>s, <min>m, or inf)\n", d)
			}
			out.durationSeconds = parsed

		case "--threads":
			if i+1 >= len(args) {
				return out, fail("startup error: --threads requires a positive integer\n")
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n <= 0 {
				return out, fail("startup error: --threads requires a positive integer\n")
			}
			out.threads = n

		case "--probe":
			if i+1 >= len(args) {
				return out, fail("startup error: --probe requires a name\n")
			}
			i++
			out.enabledProbes = append(out.enabledProbes, args[i])

		case "--probe-output":
			if i+1 >= len(args) {
				return out, fail("startup error: --probe-output requires a path\n")
			}
			i++
			out.probeOutputPath = args[i]

		case "--stats":
			*desc.State.Stats = true

		default:
			return out, fail("startup error: unknown option '%s'\n", opt)
		}
	}

	return out, nil
}
