package romaneio

import "fmt"

type State string

const (
	StateEmpty      State = "EMPTY"
	StateBuilding   State = "BUILDING"
	StateStockCheck State = "STOCK_CHECK"
	StateFinalizing State = "FINALIZING"
	StateExported   State = "EXPORTED"
	StateFailed     State = "FAILED"
)

var validNext = map[State]map[State]bool{
	StateEmpty:      {StateBuilding: true},
	StateBuilding:   {StateEmpty: true, StateStockCheck: true, StateFinalizing: true},
	StateStockCheck: {StateBuilding: true, StateFinalizing: true, StateEmpty: true},
	StateFinalizing: {StateExported: true, StateFailed: true},
	StateFailed:     {StateFinalizing: true, StateEmpty: true},
	StateExported:   {StateEmpty: true, StateBuilding: true},
}

func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	return validNext[from][to]
}

// TransitionError transición no permitida
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid romaneio transition %s -> %s", e.From, e.To)
}
