package command

import (
	customlog "github.com/open-teleop/latencyprobe/pkg/log"
	"github.com/open-teleop/latencyprobe/pkg/scene"
)

// Applier writes decoded commands onto a scene target.
type Applier struct {
	target scene.Target
	logger customlog.Logger
}

// NewApplier creates an applier for target.
func NewApplier(target scene.Target, logger customlog.Logger) *Applier {
	return &Applier{
		target: target,
		logger: logger.WithCategory(customlog.CategoryCommand),
	}
}

// Apply parses raw and mutates the target. A command with fewer than three
// segments is rejected without touching the target. Otherwise position,
// rotation and scale are always written, even when some of them fell back
// to zero, and the color is written only if it decoded cleanly.
func (a *Applier) Apply(raw string) (*SceneCommand, error) {
	a.logger.Debugf("Parsing command: %s", raw)

	cmd, err := Parse(raw)
	if err != nil {
		a.logger.Errorf("Rejected command %q: %v", raw, err)
		return nil, err
	}

	for _, fieldErr := range cmd.Errors {
		if fieldErr.Field == FieldColor {
			a.logger.Errorf("Error parsing color: %v (previous color kept)", fieldErr)
		} else {
			a.logger.Errorf("Error parsing vector: %v (using zero vector)", fieldErr)
		}
	}

	a.target.SetPosition(cmd.Position)
	a.target.SetEulerAngles(cmd.Rotation)
	a.target.SetScale(cmd.Scale)

	a.logger.Infof("Target updated: Position=%s, Rotation=%s, Scale=%s",
		scene.FormatVec3(cmd.Position), scene.FormatVec3(cmd.Rotation), scene.FormatVec3(cmd.Scale))

	if cmd.Color != nil {
		a.target.SetColor(*cmd.Color)
		a.logger.Infof("Target color updated to: %s", cmd.Color)
	}

	return cmd, nil
}
