// Package command parses LED commands received over MQTT or HTTP and applies
// them to a channel.
package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/sweeney/ledctl/internal/led"
)

// Op names a channel command.
type Op string

const (
	OpOn         Op = "on"
	OpOff        Op = "off"
	OpBrightness Op = "brightness"
	OpFlashOff   Op = "flash_off"
	OpFlashOn    Op = "flash_on"
	OpFadeTo     Op = "fade_to"
	OpFadeBy     Op = "fade_by"
)

// Ops lists every supported operation.
var Ops = []Op{OpOn, OpOff, OpBrightness, OpFlashOff, OpFlashOn, OpFadeTo, OpFadeBy}

var (
	ErrUnknownOp    = errors.New("unknown op")
	ErrMissingField = errors.New("missing field")
	ErrOutOfRange   = errors.New("value out of range")
)

// Command is the JSON payload of a command message, e.g.
//
//	{"op":"fade_to","target":200}
//	{"op":"flash_off","count":3}
type Command struct {
	Op     Op   `json:"op"`
	Level  *int `json:"level,omitempty"`  // brightness
	Count  *int `json:"count,omitempty"`  // flash_off, flash_on
	Target *int `json:"target,omitempty"` // fade_to
	Delta  *int `json:"delta,omitempty"`  // fade_by
}

// Parse decodes and validates a command payload. On a validation error the
// decoded command is still returned so callers can report its op.
func Parse(data []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks that the fields the op needs are present and in range.
// Levels are only checked against zero here; the channel clamps to its ceiling.
func (c Command) Validate() error {
	switch c.Op {
	case OpOn, OpOff:
		return nil
	case OpBrightness:
		return requireRange("level", c.Level, 0, math.MaxUint16)
	case OpFlashOff, OpFlashOn:
		return requireRange("count", c.Count, 1, math.MaxUint8)
	case OpFadeTo:
		return requireRange("target", c.Target, 0, math.MaxUint16)
	case OpFadeBy:
		if c.Delta == nil {
			return fmt.Errorf("%w: delta", ErrMissingField)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, c.Op)
	}
}

// Apply runs the command against ch and reports whether it changed anything.
// On and Off always report a change, matching the channel which has no
// result for them.
func Apply(ch *led.Channel, c Command) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}
	switch c.Op {
	case OpOn:
		ch.On()
		return true, nil
	case OpOff:
		ch.Off()
		return true, nil
	case OpBrightness:
		return ch.SetBrightness(uint16(*c.Level)), nil
	case OpFlashOff:
		return ch.FlashOff(uint8(*c.Count)), nil
	case OpFlashOn:
		return ch.FlashOn(uint8(*c.Count)), nil
	case OpFadeTo:
		return ch.FadeTo(uint16(*c.Target)), nil
	case OpFadeBy:
		return ch.FadeIncrement(*c.Delta), nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownOp, c.Op)
}

func requireRange(name string, v *int, lo, hi int) error {
	if v == nil {
		return fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	if *v < lo || *v > hi {
		return fmt.Errorf("%s=%d: %w [%d, %d]", name, *v, ErrOutOfRange, lo, hi)
	}
	return nil
}

// Int returns a pointer to v, for building commands in code.
func Int(v int) *int {
	return &v
}
