package models

import (
	"encoding/json"
	"slices"
)

// TriggerKind is a change observed on a project.
type TriggerKind string

const (
	TriggerTaskCreated   TriggerKind = "task_created"
	TriggerTaskCompleted TriggerKind = "task_completed"
	TriggerTaskUpdated   TriggerKind = "task_updated"
)

var inputTriggers = map[string]TriggerKind{
	SubtypeTaskCreated:   TriggerTaskCreated,
	SubtypeTaskCompleted: TriggerTaskCompleted,
	SubtypeTaskUpdated:   TriggerTaskUpdated,
}

// TriggerForSubtype returns the trigger kind that fires an input subtype.
func TriggerForSubtype(subtype string) (TriggerKind, bool) {
	kind, ok := inputTriggers[subtype]

	return kind, ok
}

// TriggerSet is an unordered set of trigger kinds. It marshals as a sorted list.
type TriggerSet map[TriggerKind]struct{}

func NewTriggerSet(kinds ...TriggerKind) TriggerSet {
	set := make(TriggerSet, len(kinds))
	for _, kind := range kinds {
		set[kind] = struct{}{}
	}

	return set
}

func (s TriggerSet) Add(kind TriggerKind) {
	s[kind] = struct{}{}
}

func (s TriggerSet) Has(kind TriggerKind) bool {
	_, ok := s[kind]

	return ok
}

func (s TriggerSet) Empty() bool {
	return len(s) == 0
}

// Kinds returns the members of the set, sorted.
func (s TriggerSet) Kinds() []TriggerKind {
	kinds := make([]TriggerKind, 0, len(s))
	for kind := range s {
		kinds = append(kinds, kind)
	}

	slices.Sort(kinds)

	return kinds
}

func (s TriggerSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Kinds())
}

func (s *TriggerSet) UnmarshalJSON(data []byte) error {
	var kinds []TriggerKind
	if err := json.Unmarshal(data, &kinds); err != nil {
		return err
	}

	*s = NewTriggerSet(kinds...)

	return nil
}
