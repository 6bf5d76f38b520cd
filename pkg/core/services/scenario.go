package services

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Scenario describes a day to staff: the operating window, the posts and who
// cannot work where. Hours always come from the planner.
type Scenario struct {
	Name    string           `yaml:"name" json:"name"`
	Plan    PlanSpec         `yaml:"plan" json:"plan" validate:"required"`
	Posts   []string         `yaml:"posts" json:"posts" validate:"required,min=1,unique,dive,required"`
	Workers []ScenarioWorker `yaml:"workers" json:"workers" validate:"dive"`
}

// PlanSpec is the planner input minus the counts, which come from the scenario
type PlanSpec struct {
	Start string  `yaml:"start" json:"start" validate:"required"`
	End   string  `yaml:"end" json:"end" validate:"required"`
	Rest  float64 `yaml:"rest" json:"rest" validate:"gte=0"`
}

type ScenarioWorker struct {
	Name        string    `yaml:"name" json:"name" validate:"required"`
	Unavailable []SlotRef `yaml:"unavailable" json:"unavailable" validate:"dive"`
}

// SlotRef names a slot by post name and hour start time ("07:00"). An empty
// Hour means every hour of the post; an empty Post means every post at that hour.
type SlotRef struct {
	Post string `yaml:"post" json:"post" validate:"required_without=Hour"`
	Hour string `yaml:"hour" json:"hour"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadScenario reads a YAML (or JSON) scenario file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// Validate checks required fields
func (s *Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	return nil
}
