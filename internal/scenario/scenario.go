// Package scenario loads Lua scenario scripts and replays them against a
// world coordinator. Scripts build a Scenario value through a small DSL and
// return it; the runner then executes its steps in order, so the same script
// always produces the same world.
package scenario

import (
	"math"
	"path/filepath"
	"strings"

	lua "github.com/Shopify/go-lua"

	apperrors "github.com/loreweave/loreweave/internal/errors"
)

const scenarioTypeName = "scenario"

// Scenario is an ordered script of world-building and simulation steps.
type Scenario struct {
	// Name labels the scenario, defaulting to the script's file name.
	Name string
	// WorldID is the world the scenario creates or drives.
	WorldID string
	// Steps run in order.
	Steps []Step
}

// Step is one scripted action with loosely typed arguments.
type Step struct {
	Kind string
	Args map[string]any
}

// Load parses and runs a Lua scenario script from disk. The script must
// return the Scenario value built through the DSL.
func Load(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerScenarioType(state)
	registerScenarioConstructor(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScenarioInvalidScript, "load scenario script", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScenarioInvalidScript, "run scenario script", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, apperrors.New(apperrors.CodeScenarioInvalidScript, "scenario script must return a Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	sc, ok := ud.(*Scenario)
	if !ok || sc == nil {
		return nil, apperrors.New(apperrors.CodeScenarioInvalidScript, "scenario script returned an invalid Scenario")
	}
	if strings.TrimSpace(sc.WorldID) == "" {
		return nil, apperrors.New(apperrors.CodeScenarioInvalidScript, "scenario has no world id")
	}
	if strings.TrimSpace(sc.Name) == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

func registerScenarioType(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func registerScenarioConstructor(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

func scenarioNew(state *lua.State) int {
	worldID := lua.CheckString(state, 1)
	name := lua.OptString(state, 2, "")
	sc := &Scenario{WorldID: worldID, Name: name}
	state.PushUserData(sc)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "start", Function: scenarioStart},
	{Name: "character", Function: scenarioCharacter},
	{Name: "location", Function: scenarioLocation},
	{Name: "object", Function: scenarioObject},
	{Name: "flag", Function: scenarioFlag},
	{Name: "change", Function: scenarioChange},
	{Name: "decision", Function: scenarioDecision},
	{Name: "evolve", Function: scenarioEvolve},
	{Name: "schedule", Function: scenarioSchedule},
	{Name: "checkpoint", Function: scenarioCheckpoint},
	{Name: "rollback", Function: scenarioRollback},
	{Name: "pause", Function: scenarioPause},
	{Name: "resume", Function: scenarioResume},
	{Name: "validate", Function: scenarioValidate},
}

func scenarioStart(state *lua.State) int {
	sc := checkScenario(state)
	at := lua.CheckString(state, 2)
	appendStep(sc, "start", map[string]any{"at": at})
	return 0
}

func scenarioCharacter(state *lua.State) int {
	return entityStep(state, "character")
}

func scenarioLocation(state *lua.State) int {
	return entityStep(state, "location")
}

func scenarioObject(state *lua.State) int {
	return entityStep(state, "object")
}

func entityStep(state *lua.State, kind string) int {
	sc := checkScenario(state)
	id := lua.CheckString(state, 2)
	attrs := optionalTable(state, 3)
	appendStep(sc, kind, map[string]any{"id": id, "attrs": attrs})
	return 0
}

func scenarioFlag(state *lua.State) int {
	sc := checkScenario(state)
	name := lua.CheckString(state, 2)
	if state.IsNoneOrNil(3) {
		lua.ArgumentError(state, 3, "flag value expected")
		return 0
	}
	appendStep(sc, "flag", map[string]any{"name": name, "value": luaToGo(state, 3)})
	return 0
}

func scenarioChange(state *lua.State) int {
	sc := checkScenario(state)
	op := lua.CheckString(state, 2)
	args := optionalTable(state, 3)
	args["op"] = op
	appendStep(sc, "change", args)
	return 0
}

func scenarioDecision(state *lua.State) int {
	sc := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	appendStep(sc, "decision", tableToMap(state, 2))
	return 0
}

func scenarioEvolve(state *lua.State) int {
	sc := checkScenario(state)
	hours := lua.CheckNumber(state, 2)
	appendStep(sc, "evolve", map[string]any{"hours": hours})
	return 0
}

func scenarioSchedule(state *lua.State) int {
	sc := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	appendStep(sc, "schedule", tableToMap(state, 2))
	return 0
}

func scenarioCheckpoint(state *lua.State) int {
	sc := checkScenario(state)
	label := lua.OptString(state, 2, "")
	appendStep(sc, "checkpoint", map[string]any{"label": label})
	return 0
}

func scenarioRollback(state *lua.State) int {
	sc := checkScenario(state)
	checkpointID := lua.OptString(state, 2, "")
	appendStep(sc, "rollback", map[string]any{"checkpoint": checkpointID})
	return 0
}

func scenarioPause(state *lua.State) int {
	appendStep(checkScenario(state), "pause", nil)
	return 0
}

func scenarioResume(state *lua.State) int {
	appendStep(checkScenario(state), "resume", nil)
	return 0
}

func scenarioValidate(state *lua.State) int {
	appendStep(checkScenario(state), "validate", nil)
	return 0
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if sc, ok := ud.(*Scenario); ok && sc != nil {
		return sc
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func appendStep(sc *Scenario, kind string, args map[string]any) {
	if sc == nil {
		return
	}
	if args == nil {
		args = map[string]any{}
	}
	sc.Steps = append(sc.Steps, Step{Kind: kind, Args: args})
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

func tableToGo(state *lua.State, index int) any {
	if state.TypeOf(index) != lua.TypeTable {
		return nil
	}

	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
