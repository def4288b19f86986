package svg

import (
	"fmt"
	"strconv"
	"strings"
)

// PathCommand is one absolute path data command.
type PathCommand struct {
	Op   byte
	Args []float64
}

var pathArity = map[byte]int{
	'M': 2,
	'L': 2,
	'S': 4,
	'C': 6,
	'Z': 0,
}

// ParsePathData parses the absolute M, L, S, C and Z commands PathContext
// produces. Relative and arc commands are rejected.
func ParsePathData(d string) ([]PathCommand, error) {
	fields := strings.Fields(strings.ReplaceAll(d, ",", " "))
	var cmds []PathCommand
	for i := 0; i < len(fields); {
		op := fields[i]
		if len(op) != 1 {
			return nil, fmt.Errorf("expected command at %q", op)
		}
		arity, ok := pathArity[op[0]]
		if !ok {
			return nil, fmt.Errorf("unsupported command %q", op)
		}
		if i+1+arity > len(fields) {
			return nil, fmt.Errorf("%s needs %d arguments", op, arity)
		}
		cmd := PathCommand{Op: op[0]}
		for _, f := range fields[i+1 : i+1+arity] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			cmd.Args = append(cmd.Args, v)
		}
		cmds = append(cmds, cmd)
		i += 1 + arity
	}
	if len(cmds) > 0 && cmds[0].Op != 'M' {
		return nil, fmt.Errorf("path must start with M")
	}
	return cmds, nil
}
