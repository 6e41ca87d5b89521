// pipeline.go - Explicit compilation stages with validation
package mc

import (
	"fmt"
	"strings"
)

// Stage is a step of compiling one unit
type Stage int

const (
	StageInit Stage = iota
	StageLower
	StagePeephole
	StageEmit
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "Initialization"
	case StageLower:
		return "Lowering"
	case StagePeephole:
		return "Peephole"
	case StageEmit:
		return "Encode and Patch"
	case StageComplete:
		return "Compilation Complete"
	default:
		return fmt.Sprintf("Unknown Stage %d", s)
	}
}

// Pipeline tracks the current stage of a unit and validates transitions
type Pipeline struct {
	unit    string
	current Stage
	stages  []Stage // history
}

func NewPipeline(unit string) *Pipeline {
	return &Pipeline{
		unit:    unit,
		current: StageInit,
		stages:  []Stage{StageInit},
	}
}

// AdvanceTo moves to stage. The peephole stage is optional.
func (p *Pipeline) AdvanceTo(stage Stage) error {
	valid := false
	switch p.current {
	case StageInit:
		valid = stage == StageLower
	case StageLower:
		valid = stage == StagePeephole || stage == StageEmit
	case StagePeephole:
		valid = stage == StageEmit
	case StageEmit:
		valid = stage == StageComplete
	case StageComplete:
		valid = false // Can't advance from complete
	}

	if !valid {
		history := make([]string, len(p.stages))
		for i, s := range p.stages {
			history[i] = s.String()
		}
		return fmt.Errorf("%s: invalid stage transition %s -> %s (history: %s)",
			p.unit, p.current, stage, strings.Join(history, ", "))
	}

	Tracef("PIPELINE: %s: %s -> %s\n", p.unit, p.current, stage)
	p.current = stage
	p.stages = append(p.stages, stage)
	return nil
}

func (p *Pipeline) Current() Stage {
	return p.current
}

// History returns the stages visited so far
func (p *Pipeline) History() []Stage {
	return append([]Stage(nil), p.stages...)
}
