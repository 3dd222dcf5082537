// Package di provides the component container behind the host framework's
// model, singleton and helper factories.
//
// Keys are class aliases such as "model/catalog/product". Factory keys build
// a new instance per resolve, shared keys cache one instance. Tests replace
// any key with a mock through Override; overrides win over registrations
// and are dropped together with ResetOverrides.
//
//	c := di.NewContainer()
//	c.RegisterFactory("model/catalog/product", newProduct)
//	c.Override("model/catalog/product", mockProduct)
//	p, err := di.Resolve[Product](c, "model/catalog/product")
package di
