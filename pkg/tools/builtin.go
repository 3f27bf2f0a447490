package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type EchoInput struct {
	Text string `json:"text" jsonschema_description:"Text returned unchanged."`
}

type ClockInput struct {
	Timezone string `json:"timezone,omitempty" jsonschema_description:"IANA time zone, e.g. Asia/Ho_Chi_Minh. Defaults to UTC."`
}

// EchoEntry returns its "text" argument.
func EchoEntry() Entry {
	return Entry{
		Name:        "echo",
		Description: "Return the given text unchanged.",
		Schema:      GenerateSchema[EchoInput](),
		Tool: ToolFunc(func(ctx context.Context, args Args) (any, error) {
			in, err := Decode[EchoInput](args)
			if err != nil {
				return nil, &ArgumentError{Tool: "echo", Err: err}
			}
			return in.Text, nil
		}),
	}
}

// ClockEntry reports the current time in RFC 3339.
func ClockEntry() Entry {
	return clockEntry(time.Now)
}

func clockEntry(now func() time.Time) Entry {
	return Entry{
		Name:        "clock",
		Description: "Return the current date and time, optionally in a given time zone.",
		Schema:      GenerateSchema[ClockInput](),
		Tool: ToolFunc(func(ctx context.Context, args Args) (any, error) {
			in, err := Decode[ClockInput](args)
			if err != nil {
				return nil, &ArgumentError{Tool: "clock", Err: err}
			}
			loc := time.UTC
			if in.Timezone != "" {
				if loc, err = time.LoadLocation(in.Timezone); err != nil {
					return nil, &ArgumentError{Tool: "clock", Err: fmt.Errorf("unknown timezone %q: %w", in.Timezone, err)}
				}
			}
			return now().In(loc).Format(time.RFC3339), nil
		}),
	}
}

// Builtins lists the tools that can be enabled from config.json by name.
func Builtins() map[string]func() Entry {
	return map[string]func() Entry{
		"echo":  EchoEntry,
		"clock": ClockEntry,
	}
}

// FromNames resolves built-in tool names; unknown names are logged and skipped.
func FromNames(names []string) []Entry {
	builtins := Builtins()
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		build, ok := builtins[name]
		if !ok {
			slog.Warn("Unknown built-in tool", "name", name)
			continue
		}
		entries = append(entries, build())
	}
	return entries
}
