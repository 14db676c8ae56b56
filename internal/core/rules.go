package core

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewTeamCreatorMembershipRule())
	engine.Register(NewTaskReferencesRule())
	engine.Register(NewJoinCodeFormatRule())
	engine.Register(NewJoinCodeUniqueRule())
	return engine
}

// changedAfter returns the After payloads of create and update changes on
// entity that have type T.
func changedAfter[T any](changes []Change, entity EntityType) []T {
	var out []T
	for _, c := range changes {
		if c.Entity != entity || c.Action == ActionDelete {
			continue
		}
		if v, ok := c.After.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
