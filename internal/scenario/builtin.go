package scenario

import (
	"fmt"
	"slices"
)

var builtin = map[string]string{
	"demo": `
name: demo
description: setpoint change, disturbances and an overflow on a four-tank plant
ticks: 120
events:
  - {at: 10, action: disturb, tank: 0, value: 20}
  - {at: 25, action: set_target, tank: 1, value: 65}
  - {at: 40, action: disturb_random, tank: 2}
  - {at: 55, action: spill, tank: 3}
  - {at: 70, action: pause}
  - {at: 80, action: resume}
  - {at: 95, action: disturb, tank: 1, value: -25}
`,
	"steady": `
name: steady
description: untouched plant, noise only
ticks: 200
`,
	"upset": `
name: upset
description: every tank knocked out of band at once, then left to recover
ticks: 60
events:
  - {at: 5, action: disturb, tank: 0, value: 30}
  - {at: 5, action: disturb, tank: 1, value: -30}
  - {at: 5, action: spill, tank: 2}
  - {at: 5, action: disturb, tank: 3, value: -20}
`,
}

func Builtin(name string) (*Scenario, error) {
	src, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %s (available: %v)", name, ListBuiltin())
	}
	return Parse([]byte(src))
}

func ListBuiltin() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
