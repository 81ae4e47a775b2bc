package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName    = "bool"
	booleanFlagTrueLiteral = "true"
	booleanAcceptedValues  = "true, false, yes, no, on, off, 1, 0"
	invalidBooleanFormat   = "invalid boolean value %q for --%s; accepted values: %s"
)

var booleanLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// parseBooleanLiteral accepts the literals of booleanLiterals; an empty input means true.
func parseBooleanLiteral(input string) (bool, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return true, true
	}
	value, known := booleanLiterals[normalized]
	return value, known
}

// booleanFlag is a pflag.Value that accepts yes/no style literals, so flags
// such as --clipboard can be written as "--clipboard no".
type booleanFlag struct {
	target *bool
	name   string
}

func (flag *booleanFlag) Set(input string) error {
	value, known := parseBooleanLiteral(input)
	if !known {
		return fmt.Errorf(invalidBooleanFormat, input, flag.name, booleanAcceptedValues)
	}
	*flag.target = value
	return nil
}

func (flag *booleanFlag) String() string {
	if flag == nil || flag.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*flag.target)
}

func (flag *booleanFlag) Type() string {
	return booleanFlagTypeName
}

func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	*target = defaultValue
	flagSet.Var(&booleanFlag{target: target, name: name}, name, usage)
	if registered := flagSet.Lookup(name); registered != nil {
		registered.DefValue = strconv.FormatBool(defaultValue)
		registered.NoOptDefVal = booleanFlagTrueLiteral
	}
}

// normalizeBooleanFlagArguments joins "--flag value" pairs of boolean flags
// into "--flag=value" so pflag does not treat the literal as a positional argument.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	booleanNames := make(map[string]struct{})
	collectBooleanFlagNames(command, booleanNames)
	if len(booleanNames) == 0 {
		return arguments
	}
	normalized := make([]string, 0, len(arguments))
	for argumentIndex := 0; argumentIndex < len(arguments); argumentIndex++ {
		argument := arguments[argumentIndex]
		if argument == "--" {
			return append(normalized, arguments[argumentIndex:]...)
		}
		flagName := strings.TrimPrefix(argument, "--")
		_, isBoolean := booleanNames[flagName]
		if !strings.HasPrefix(argument, "--") || strings.Contains(argument, "=") || !isBoolean || argumentIndex+1 >= len(arguments) {
			normalized = append(normalized, argument)
			continue
		}
		nextArgument := arguments[argumentIndex+1]
		if _, known := booleanLiterals[strings.ToLower(strings.TrimSpace(nextArgument))]; known && !strings.HasPrefix(nextArgument, "-") {
			normalized = append(normalized, fmt.Sprintf("--%s=%s", flagName, nextArgument))
			argumentIndex++
			continue
		}
		normalized = append(normalized, argument)
	}
	return normalized
}

func collectBooleanFlagNames(command *cobra.Command, target map[string]struct{}) {
	if command == nil {
		return
	}
	collect := func(flagSet *pflag.FlagSet) {
		flagSet.VisitAll(func(flag *pflag.Flag) {
			if flag.Value != nil && flag.Value.Type() == booleanFlagTypeName {
				target[flag.Name] = struct{}{}
			}
		})
	}
	collect(command.PersistentFlags())
	collect(command.Flags())
	for _, child := range command.Commands() {
		collectBooleanFlagNames(child, target)
	}
}
