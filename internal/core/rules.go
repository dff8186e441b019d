package core

// NewDefaultRulesEngine builds a rules engine with the built-in invariant set:
// category name uniqueness, referential integrity on category deletes, the
// product stock floor, and the order deletion policy.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewCategoryNameRule())
	engine.Register(NewCategoryReferenceRule())
	engine.Register(NewStockFloorRule())
	engine.Register(NewOrderDeletePolicyRule())
	return engine
}
