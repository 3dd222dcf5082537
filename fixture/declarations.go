package fixture

import "sync"

// DefaultSharedFixture is loaded for a class declaring a shared fixture
// without naming one.
const DefaultSharedFixture = "default"

// Annotation holds the fixture declarations of a test class or method.
type Annotation struct {
	// Dir is where relative fixture names are resolved (class level only).
	Dir           string
	Fixtures      []string
	Shared        []string
	DoNotIndexAll bool
	DoNotIndex    []string

	loadFixture       bool
	loadSharedFixture bool
}

// DeclaresFixture reports whether loadFixture was declared, possibly with
// no names.
func (a *Annotation) DeclaresFixture() bool { return a != nil && a.loadFixture }

// DeclaresSharedFixture reports whether loadSharedFixture was declared.
func (a *Annotation) DeclaresSharedFixture() bool { return a != nil && a.loadSharedFixture }

// Annotate mutates an Annotation.
type Annotate func(*Annotation)

// LoadFixture declares local fixtures; with no names the test method name
// is used.
func LoadFixture(names ...string) Annotate {
	return func(a *Annotation) {
		a.loadFixture = true
		a.Fixtures = append(a.Fixtures, names...)
	}
}

// LoadSharedFixture declares class-wide fixtures; with no names
// DefaultSharedFixture is used.
func LoadSharedFixture(names ...string) Annotate {
	return func(a *Annotation) {
		a.loadSharedFixture = true
		a.Shared = append(a.Shared, names...)
	}
}

// DoNotIndexAll suppresses every reindex after entity writes.
func DoNotIndexAll() Annotate {
	return func(a *Annotation) { a.DoNotIndexAll = true }
}

// DoNotIndex suppresses the given index codes.
func DoNotIndex(codes ...string) Annotate {
	return func(a *Annotation) { a.DoNotIndex = append(a.DoNotIndex, codes...) }
}

// InDir sets the directory relative fixture names resolve against.
func InDir(dir string) Annotate {
	return func(a *Annotation) { a.Dir = dir }
}

// TestCase identifies a running test method.
type TestCase interface {
	Class() string
	Method() string
}

// Declarations records class and method annotations registered from test
// code.
type Declarations struct {
	mu      sync.RWMutex
	classes map[string]*Annotation
	methods map[string]map[string]*Annotation
}

// NewDeclarations creates an empty declaration set.
func NewDeclarations() *Declarations {
	return &Declarations{
		classes: map[string]*Annotation{},
		methods: map[string]map[string]*Annotation{},
	}
}

// Class annotates a test class.
func (d *Declarations) Class(class string, annotations ...Annotate) *Declarations {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := d.classes[class]
	if a == nil {
		a = &Annotation{}
		d.classes[class] = a
	}
	for _, fn := range annotations {
		fn(a)
	}
	return d
}

// Method annotates a test method of class.
func (d *Declarations) Method(class, method string, annotations ...Annotate) *Declarations {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.methods[class] == nil {
		d.methods[class] = map[string]*Annotation{}
	}
	a := d.methods[class][method]
	if a == nil {
		a = &Annotation{}
		d.methods[class][method] = a
	}
	for _, fn := range annotations {
		fn(a)
	}
	return d
}

// ClassAnnotation returns the class annotation, or nil.
func (d *Declarations) ClassAnnotation(class string) *Annotation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.classes[class]
}

// MethodAnnotation returns the method annotation, or nil.
func (d *Declarations) MethodAnnotation(class, method string) *Annotation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.methods[class][method]
}

// Dir returns the fixture directory of class.
func (d *Declarations) Dir(class string) string {
	if a := d.ClassAnnotation(class); a != nil {
		return a.Dir
	}
	return ""
}

// SharedFixtures resolves the class-level shared fixture names.
func (d *Declarations) SharedFixtures(class string) []string {
	a := d.ClassAnnotation(class)
	if !a.DeclaresSharedFixture() {
		return nil
	}
	if len(a.Shared) == 0 {
		return []string{DefaultSharedFixture}
	}
	return append([]string(nil), a.Shared...)
}

// LocalFixtures resolves the fixture names for a method: method-level
// declarations win, class-level loadFixture is the fallback.
func (d *Declarations) LocalFixtures(tc TestCase) []string {
	a := d.MethodAnnotation(tc.Class(), tc.Method())
	if !a.DeclaresFixture() {
		a = d.ClassAnnotation(tc.Class())
	}
	if !a.DeclaresFixture() {
		return nil
	}
	if len(a.Fixtures) == 0 {
		return []string{tc.Method()}
	}
	return append([]string(nil), a.Fixtures...)
}

// ClassOptions returns the processing options declared on class.
func (d *Declarations) ClassOptions(class string) Options {
	return Options{}.with(d.ClassAnnotation(class))
}

// MethodOptions merges class and method processing options.
func (d *Declarations) MethodOptions(tc TestCase) Options {
	return d.ClassOptions(tc.Class()).with(d.MethodAnnotation(tc.Class(), tc.Method()))
}
