package main

import (
	"strconv"
	"strings"
)

// args splits command arguments into positionals and flags. Flags take the
// next argument as value unless they are listed in boolFlags.
type args struct {
	positional []string
	flags      map[string]string
}

var boolFlags = map[string]bool{"--once": true}

var shortFlags = map[string]string{"-f": "--format"}

func parseArgs(in []string) args {
	a := args{flags: map[string]string{}}

	for i := 0; i < len(in); i++ {
		arg := in[i]

		if long, ok := shortFlags[arg]; ok {
			arg = long
		}

		if !strings.HasPrefix(arg, "--") {
			a.positional = append(a.positional, arg)
			continue
		}

		if name, value, ok := strings.Cut(arg, "="); ok {
			a.flags[name] = value
			continue
		}

		if boolFlags[arg] || i+1 >= len(in) {
			a.flags[arg] = "true"
			continue
		}

		a.flags[arg] = in[i+1]
		i++
	}

	return a
}

func (a args) get(name, def string) string {
	if v, ok := a.flags[name]; ok {
		return v
	}

	return def
}

func (a args) has(name string) bool {
	_, ok := a.flags[name]
	return ok
}

func (a args) int(name string, def int) int {
	v, err := strconv.Atoi(a.get(name, ""))
	if err != nil {
		return def
	}

	return v
}

func (a args) arg(i int) string {
	if i < len(a.positional) {
		return a.positional[i]
	}

	return ""
}
