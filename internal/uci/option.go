package uci

import (
	"fmt"
	"strconv"
	"strings"
)

// Option is one entry of the uci option list.
type Option interface {
	Name() string
	UCIString() string
	Set(value string) error
}

// SpinOption is an integer option with an inclusive range.
type SpinOption struct {
	name     string
	def      int
	min, max int
	apply    func(int) error
}

func (o *SpinOption) Name() string { return o.name }

func (o *SpinOption) UCIString() string {
	return fmt.Sprintf("option name %s type spin default %d min %d max %d", o.name, o.def, o.min, o.max)
}

func (o *SpinOption) Set(value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("option %s: %w", o.name, err)
	}
	if v < o.min || v > o.max {
		return fmt.Errorf("option %s: %d not in [%d, %d]: %w", o.name, v, o.min, o.max, ErrOptionRange)
	}
	return o.apply(v)
}

// CheckOption is a boolean option.
type CheckOption struct {
	name  string
	def   bool
	apply func(bool) error
}

func (o *CheckOption) Name() string { return o.name }

func (o *CheckOption) UCIString() string {
	return fmt.Sprintf("option name %s type check default %t", o.name, o.def)
}

func (o *CheckOption) Set(value string) error {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("option %s: %w", o.name, err)
	}
	return o.apply(v)
}

// StringOption takes free text; "<empty>" clears it.
type StringOption struct {
	name  string
	apply func(string) error
}

func (o *StringOption) Name() string { return o.name }

func (o *StringOption) UCIString() string {
	return fmt.Sprintf("option name %s type string default <empty>", o.name)
}

func (o *StringOption) Set(value string) error {
	if value == "<empty>" {
		value = ""
	}
	return o.apply(value)
}

// ButtonOption runs an action and carries no value.
type ButtonOption struct {
	name  string
	apply func() error
}

func (o *ButtonOption) Name() string { return o.name }

func (o *ButtonOption) UCIString() string {
	return fmt.Sprintf("option name %s type button", o.name)
}

func (o *ButtonOption) Set(string) error { return o.apply() }

// parseSetOption splits "name <words> value <words>".
func parseSetOption(args []string) (name, value string, err error) {
	var names, values []string
	var cur *[]string
	for _, arg := range args {
		switch arg {
		case "name":
			cur = &names
		case "value":
			cur = &values
		default:
			if cur == nil {
				return "", "", fmt.Errorf("setoption: unexpected %q", arg)
			}
			*cur = append(*cur, arg)
		}
	}
	if len(names) == 0 {
		return "", "", fmt.Errorf("setoption: missing name")
	}
	return strings.Join(names, " "), strings.Join(values, " "), nil
}
