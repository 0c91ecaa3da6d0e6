package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/mtloop/logging"
	"github.com/sarchlab/mtloop/sched"
	"github.com/sarchlab/mtloop/timing"
)

// LoopFile describes a loop and its chains.
type LoopFile struct {
	Capacity    int         `yaml:"capacity"`
	PanicPolicy string      `yaml:"panic_policy"`
	Chains      []ChainSpec `yaml:"chains"`
}

// ChainSpec describes a chain of slots.
type ChainSpec struct {
	Slots []SlotSpec `yaml:"slots"`
}

// SlotSpec describes a slot and the task it runs.
type SlotSpec struct {
	Task        string            `yaml:"task"`
	Name        string            `yaml:"name"`
	MinDuration uint64            `yaml:"min_duration"`
	Padding     uint64            `yaml:"padding"`
	Params      map[string]string `yaml:"params"`
}

// DefaultLoopFile returns the demo loop: one chain of three slots that log
// a message each.
func DefaultLoopFile() *LoopFile {
	return &LoopFile{
		Capacity:    1,
		PanicPolicy: sched.PanicCapture.String(),
		Chains: []ChainSpec{{
			Slots: []SlotSpec{
				{Task: "log", Name: "TASK1", MinDuration: 100, Padding: 10},
				{Task: "log", Name: "TASK2", MinDuration: 100, Padding: 20},
				{Task: "log", Name: "TASK3", MinDuration: 50, Padding: 10},
			},
		}},
	}
}

// ReadLoopFile reads a loop definition from a YAML file.
func ReadLoopFile(path string) (*LoopFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loop file: %w", err)
	}

	lf, err := ParseLoopFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return lf, nil
}

// ParseLoopFile decodes and validates a loop definition. Unknown fields are
// rejected.
func ParseLoopFile(r io.Reader) (*LoopFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	lf := &LoopFile{}

	err := dec.Decode(lf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode loop file: %w", err)
	}

	if lf.Capacity == 0 {
		lf.Capacity = len(lf.Chains)
	}

	err = lf.Validate()
	if err != nil {
		return nil, err
	}

	return lf, nil
}

// Validate checks the structure of the loop definition.
func (lf *LoopFile) Validate() error {
	var errs []error

	if len(lf.Chains) == 0 {
		errs = append(errs, errors.New("loop has no chains"))
	}

	if lf.Capacity < len(lf.Chains) {
		errs = append(errs, fmt.Errorf("capacity %d is smaller than %d chains",
			lf.Capacity, len(lf.Chains)))
	}

	_, err := ParsePanicPolicy(lf.PanicPolicy)
	if err != nil {
		errs = append(errs, err)
	}

	for i, c := range lf.Chains {
		if len(c.Slots) == 0 {
			errs = append(errs, fmt.Errorf("chain %d has no slots", i))
		}

		for j, s := range c.Slots {
			if s.Task == "" {
				errs = append(errs,
					fmt.Errorf("chain %d slot %d has no task", i, j))
			}
		}
	}

	return errors.Join(errs...)
}

// ParsePanicPolicy converts a policy name. An empty name selects capture.
func ParsePanicPolicy(s string) (sched.PanicPolicy, error) {
	switch s {
	case "", sched.PanicCapture.String():
		return sched.PanicCapture, nil
	case sched.PanicPropagate.String():
		return sched.PanicPropagate, nil
	default:
		return sched.PanicCapture, fmt.Errorf("unknown panic policy %q", s)
	}
}

// Build creates the loop described by the file. Tasks come from reg.
func (lf *LoopFile) Build(
	reg *Registry,
	clock timing.Clock,
	logger logging.Logger,
	opts ...sched.LoopOption,
) (*sched.Loop, error) {
	err := lf.Validate()
	if err != nil {
		return nil, err
	}

	policy, err := ParsePanicPolicy(lf.PanicPolicy)
	if err != nil {
		return nil, err
	}

	opts = append([]sched.LoopOption{sched.WithPanicPolicy(policy)}, opts...)
	loop := sched.NewLoop(lf.Capacity, clock, logger, opts...)

	deps := Deps{Clock: clock, Logger: logging.Safe(logger)}

	for i, c := range lf.Chains {
		slots, err := buildSlots(reg, c, deps)
		if err != nil {
			return nil, errors.Join(
				fmt.Errorf("chain %d: %w", i, err), loop.Close())
		}

		attached := loop.Attach(slots...)
		err = closeSlots(slots)

		if !attached {
			err = errors.Join(fmt.Errorf("chain %d: loop is full", i), err)
		}

		if err != nil {
			return nil, errors.Join(err, loop.Close())
		}
	}

	return loop, nil
}

func buildSlots(reg *Registry, c ChainSpec, deps Deps) ([]*sched.TimeSlot, error) {
	slots := make([]*sched.TimeSlot, 0, len(c.Slots))

	for j, s := range c.Slots {
		task, err := reg.Build(s, deps)
		if err != nil {
			return nil, errors.Join(
				fmt.Errorf("slot %d: %w", j, err), closeSlots(slots))
		}

		slots = append(slots, sched.NewTimeSlot(task, s.MinDuration, s.Padding))
	}

	return slots, nil
}

func closeSlots(slots []*sched.TimeSlot) error {
	var errs []error

	for _, s := range slots {
		errs = append(errs, s.Close())
	}

	return errors.Join(errs...)
}
