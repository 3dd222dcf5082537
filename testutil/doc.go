// Package testutil is the per-test layer over testapp and the fixture
// engine.
//
// A Suite stands for a test class. Start applies the class's shared
// fixtures, and each Case applies the local fixtures of one method:
//
//	func TestCatalog(t *testing.T) {
//	    env.Engine().Declarations().
//	        Class("Catalog", fixture.InDir("testdata"), fixture.LoadSharedFixture()).
//	        Method("Catalog", "ProductSave", fixture.LoadFixture())
//
//	    suite := testutil.NewSuite(env, "Catalog")
//	    suite.Start(t)
//	    t.Run("ProductSave", func(t *testing.T) {
//	        c := suite.Case(t)
//	        // ...
//	        c.AssertEventDispatched("catalog_product_save_after")
//	    })
//	}
//
// Every case begins with zeroed event counters. On teardown it discards
// its fixtures, drops model mocks and restores the registry entries it
// replaced.
//
// TestComponent, Manager and THelper manage the lifecycle of the
// components a test run needs, the in-memory database and the substituted
// environment among them.
package testutil
