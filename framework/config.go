package framework

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// node is an immutable configuration tree node. Writers copy the path from
// the root to the changed node, so a snapshot is just a root pointer.
type node struct {
	value    string
	hasValue bool
	children map[string]*node
}

func (n *node) child(name string) *node {
	if n == nil {
		return nil
	}
	return n.children[name]
}

func (n *node) clone() *node {
	if n == nil {
		return &node{}
	}
	c := &node{value: n.value, hasValue: n.hasValue}
	if len(n.children) > 0 {
		c.children = make(map[string]*node, len(n.children))
		for k, v := range n.children {
			c.children[k] = v
		}
	}
	return c
}

// ConfigSnapshot is an opaque, immutable view of a Config.
type ConfigSnapshot struct {
	root *node
}

// Config is the merged configuration tree addressed by slash-separated
// paths such as "default/web/secure/base_url".
type Config struct {
	mu       sync.RWMutex
	root     *node
	backends map[string]string
}

// NewConfig creates an empty configuration tree.
func NewConfig() *Config {
	return &Config{root: &node{}, backends: map[string]string{}}
}

func splitPath(path string) []string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetNode returns the value stored at path.
func (c *Config) GetNode(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := c.root
	for _, p := range splitPath(path) {
		if n = n.child(p); n == nil {
			return "", false
		}
	}
	return n.value, n.hasValue
}

// Children lists the child names under path, sorted.
func (c *Config) Children(path string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := c.root
	for _, p := range splitPath(path) {
		if n = n.child(p); n == nil {
			return nil
		}
	}
	names := make([]string, 0, len(n.children))
	for k := range n.children {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetNode stores value at path, creating intermediate nodes.
func (c *Config) SetNode(path, value string) {
	parts := splitPath(path)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.root = setIn(c.root, parts, value)
}

func setIn(n *node, parts []string, value string) *node {
	c := n.clone()
	if len(parts) == 0 {
		c.value, c.hasValue = value, true
		return c
	}
	if c.children == nil {
		c.children = map[string]*node{}
	}
	c.children[parts[0]] = setIn(n.child(parts[0]), parts[1:], value)
	return c
}

// Snapshot captures the current tree.
func (c *Config) Snapshot() ConfigSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ConfigSnapshot{root: c.root}
}

// Restore replaces the tree with a previously captured snapshot.
func (c *Config) Restore(s ConfigSnapshot) {
	if s.root == nil {
		s.root = &node{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.root = s.root
}

// Get reads path from the snapshot.
func (s ConfigSnapshot) Get(path string) (string, bool) {
	return (&Config{root: s.root}).GetNode(path)
}

// MergeXML merges an XML document into the tree. The document element is
// skipped; leaf element text becomes the value of the element's path.
//
//	<config><default><web><secure><base_url>x</base_url></secure></web></default></config>
func (c *Config) MergeXML(r io.Reader) error {
	return c.MergeXMLAt("", r)
}

// MergeXMLAt merges an XML fragment below base. Every top-level element of
// the fragment is merged, so both documents and bare fragments are accepted.
func (c *Config) MergeXMLAt(base string, r io.Reader) error {
	dec := xml.NewDecoder(r)
	type frame struct {
		name string
		text strings.Builder
		leaf bool
	}
	var stack []*frame
	values := map[string]string{}
	var order []string
	skipRoot := base == ""

	pathOf := func() string {
		parts := splitPath(base)
		for i, f := range stack {
			if i == 0 && skipRoot {
				continue
			}
			parts = append(parts, f.name)
		}
		return strings.Join(parts, "/")
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("config xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) > 0 {
				stack[len(stack)-1].leaf = false
			}
			stack = append(stack, &frame{name: t.Name.Local, leaf: true})
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return fmt.Errorf("config xml: unexpected </%s>", t.Name.Local)
			}
			top := stack[len(stack)-1]
			if top.leaf && !(skipRoot && len(stack) == 1) {
				p := pathOf()
				if _, seen := values[p]; !seen {
					order = append(order, p)
				}
				values[p] = strings.TrimSpace(top.text.String())
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) != 0 {
		return fmt.Errorf("config xml: unclosed <%s>", stack[len(stack)-1].name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range order {
		c.root = setIn(c.root, splitPath(p), values[p])
	}
	return nil
}

// DeclareBackend binds a config path to a backend model alias; values saved
// through fixtures at that path pass through the backend first.
func (c *Config) DeclareBackend(path, alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backends[strings.Trim(path, "/")] = alias
}

// Backend returns the backend alias declared for path.
func (c *Config) Backend(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	alias, ok := c.backends[strings.Trim(path, "/")]
	return alias, ok
}
