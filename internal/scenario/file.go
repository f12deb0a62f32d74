package scenario

import (
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// scenarioFile is the YAML document the whatif command reads.
type scenarioFile struct {
	Scenarios []WhatIfScenario `yaml:"scenarios"`
}

// LoadScenarios parses a YAML scenario definition file. Scenarios
// without an id get one assigned so batch results stay addressable.
func LoadScenarios(path string) ([]WhatIfScenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenario: read %s", path)
	}

	var f scenarioFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "scenario: parse %s", path)
	}
	if len(f.Scenarios) == 0 {
		return nil, eris.New("scenario: file defines no scenarios")
	}

	for i := range f.Scenarios {
		if f.Scenarios[i].ID == "" {
			f.Scenarios[i].ID = uuid.NewString()
		}
		if f.Scenarios[i].Type == "" {
			f.Scenarios[i].Type = WhatIfCustom
		}
	}
	return f.Scenarios, nil
}
