package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/dispatchboard/core/board"
	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/infra/backend/memory"
)

// Step is one user gesture. Begin and Drop may be combined in one step;
// Cancel ends the gesture without a target.
type Step struct {
	Begin  string     `yaml:"begin,omitempty"`
	Drop   string     `yaml:"drop,omitempty"`
	Cancel bool       `yaml:"cancel,omitempty"`
	Reject string     `yaml:"reject,omitempty"`
	Expect StepExpect `yaml:"expect"`
}

// StepExpect checks the outcome of a step. Error matches a substring of the
// misuse error or of the assignment failure.
type StepExpect struct {
	Outcome string `yaml:"outcome,omitempty"`
	Error   string `yaml:"error,omitempty"`
}

// Expected is checked against the board after the last step. Nil fields are
// not checked.
type Expected struct {
	Calls      *int                `yaml:"calls"`
	Failures   *int                `yaml:"failures"`
	Cells      map[string][]string `yaml:"cells"`
	Conflicts  []string            `yaml:"conflicts"`
	Unassigned []string            `yaml:"unassigned"`
	State      string              `yaml:"state"`
}

type Scenario struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Tenant      string            `yaml:"tenant"`
	Anchor      string            `yaml:"anchor"`
	Board       board.Config      `yaml:"-"`
	Fixture     memory.Fixture    `yaml:"fixture"`
	Reject      map[string]string `yaml:"reject,omitempty"`
	Steps       []Step            `yaml:"steps"`
	Expected    Expected          `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	if sc.Tenant == "" {
		sc.Tenant = "scenario"
	}
	if _, err := sc.anchor(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

func (sc *Scenario) anchor() (model.Date, error) {
	if sc.Anchor == "" {
		return model.Date{}, fmt.Errorf("anchor is required")
	}
	return model.ParseDate(sc.Anchor)
}
