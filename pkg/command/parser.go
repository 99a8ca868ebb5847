// Package command decodes scene-update commands of the form
//
//	<px>,<py>,<pz>;<rx>,<ry>,<rz>;<sx>,<sy>,<sz>[;<r>,<g>,<b>]
//
// and applies them to a scene target.
package command

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/open-teleop/latencyprobe/pkg/scene"
)

// Common errors
var (
	ErrInvalidCommand = errors.New("invalid command format, expected 'x,y,z;x,y,z;x,y,z[;R,G,B]'")
	ErrInvalidVector  = errors.New("invalid vector format, expected 'x,y,z'")
	ErrInvalidColor   = errors.New("invalid color format, expected 'R,G,B'")
)

// decimalPattern matches invariant decimal numbers with an optional
// exponent. Hex floats and Inf/NaN spellings are not numbers on the wire.
var decimalPattern = regexp.MustCompile(`^[+-]?(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?$`)

const (
	segmentSeparator   = ";"
	componentSeparator = ","
	minSegments        = 3
)

// Field names used in diagnostics.
const (
	FieldPosition = "position"
	FieldRotation = "rotation"
	FieldScale    = "scale"
	FieldColor    = "color"
)

// FieldError records a field that failed to decode.
type FieldError struct {
	Field string
	Raw   string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Raw, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// SceneCommand is one decoded channel value. Fields that failed to decode
// hold the zero vector and are listed in Errors; Color is nil when the
// segment was absent or invalid.
type SceneCommand struct {
	Position mgl64.Vec3
	Rotation mgl64.Vec3
	Scale    mgl64.Vec3
	Color    *scene.Color
	Errors   []*FieldError
}

// HasColor reports whether a valid color segment was decoded.
func (c *SceneCommand) HasColor() bool {
	return c.Color != nil
}

// Parse decodes a raw command. It fails only when fewer than three
// segments are present; malformed vectors fall back to zero and a
// malformed color is dropped, both recorded in SceneCommand.Errors.
func Parse(raw string) (*SceneCommand, error) {
	parts := strings.Split(raw, segmentSeparator)
	if len(parts) < minSegments {
		return nil, fmt.Errorf("%w: got %d segments", ErrInvalidCommand, len(parts))
	}

	cmd := &SceneCommand{}
	cmd.Position = cmd.vectorOrZero(FieldPosition, parts[0])
	cmd.Rotation = cmd.vectorOrZero(FieldRotation, parts[1])
	cmd.Scale = cmd.vectorOrZero(FieldScale, parts[2])

	if len(parts) > minSegments {
		color, err := ParseColor(parts[3])
		if err != nil {
			cmd.Errors = append(cmd.Errors, &FieldError{Field: FieldColor, Raw: parts[3], Err: err})
		} else {
			cmd.Color = &color
		}
	}

	return cmd, nil
}

func (c *SceneCommand) vectorOrZero(field, raw string) mgl64.Vec3 {
	v, err := ParseVector(raw)
	if err != nil {
		c.Errors = append(c.Errors, &FieldError{Field: field, Raw: raw, Err: err})
		return mgl64.Vec3{}
	}
	return v
}

// ParseVector decodes "x,y,z" using the invariant decimal format.
func ParseVector(raw string) (mgl64.Vec3, error) {
	values := strings.Split(raw, componentSeparator)
	if len(values) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("%w: got %d components", ErrInvalidVector, len(values))
	}

	var v mgl64.Vec3
	for i, s := range values {
		s = strings.TrimSpace(s)
		if !decimalPattern.MatchString(s) {
			return mgl64.Vec3{}, fmt.Errorf("%w: component %d: %q is not a decimal number", ErrInvalidVector, i, s)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return mgl64.Vec3{}, fmt.Errorf("%w: component %d: %v", ErrInvalidVector, i, err)
		}
		v[i] = f
	}
	return v, nil
}

// ParseColor decodes "r,g,b" integer channels in [0,255] into a normalized color.
func ParseColor(raw string) (scene.Color, error) {
	values := strings.Split(raw, componentSeparator)
	if len(values) != 3 {
		return scene.Color{}, fmt.Errorf("%w: got %d components", ErrInvalidColor, len(values))
	}

	var channels [3]float64
	for i, s := range values {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return scene.Color{}, fmt.Errorf("%w: component %d: %v", ErrInvalidColor, i, err)
		}
		if n < 0 || n > 255 {
			return scene.Color{}, fmt.Errorf("%w: component %d out of range: %d", ErrInvalidColor, i, n)
		}
		channels[i] = float64(n) / 255
	}
	return scene.Color{R: channels[0], G: channels[1], B: channels[2]}, nil
}

// Format encodes a command in wire format. Used by tools and tests that
// inject commands.
func Format(position, rotation, scale mgl64.Vec3, color *[3]int) string {
	s := formatVector(position) + segmentSeparator + formatVector(rotation) + segmentSeparator + formatVector(scale)
	if color != nil {
		s += segmentSeparator + fmt.Sprintf("%d,%d,%d", color[0], color[1], color[2])
	}
	return s
}

func formatVector(v mgl64.Vec3) string {
	parts := make([]string, 3)
	for i := range parts {
		parts[i] = strconv.FormatFloat(v[i], 'g', -1, 64)
	}
	return strings.Join(parts, componentSeparator)
}
