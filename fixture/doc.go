// Package fixture is the fixture lifecycle engine.
//
// A fixture is a tree keyed by kind (table, eav, config, ...). The Engine
// merges YAML fragments into one pending tree, then Apply hands each kind
// to the Processor registered for it and Discard reverses the change.
// Fixtures are layered by Scope: default, shared (one test class) and local
// (one test method). Processors record what they changed in Storage under
// "<scope>_<kind>" keys and consult the shared layer before deleting, so
// discarding a local fixture never removes shared data.
//
//	reg := fixture.NewRegistry(log).Register("table", tableProcessor)
//	engine := fixture.NewEngine(reg, fixture.WithLoader(loader))
//	if err := engine.LoadByTestCase(tc); err != nil { ... }
//	if err := engine.Apply(ctx); err != nil { ... }
//	defer engine.Discard(ctx)
package fixture
