package tools

import (
	"fmt"

	"github.com/xiaot623/tripchat/internal/adapter/llm"
)

// Catalog is the immutable table of tools offered to the model.
type Catalog struct {
	tools map[string]Tool
	order []Definition
}

// NewCatalog builds a catalog. Tool names must be non-empty and unique.
func NewCatalog(tools ...Tool) (*Catalog, error) {
	c := &Catalog{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("tool is required")
		}
		def := t.Definition()
		if def.Name == "" {
			return nil, fmt.Errorf("tool name is required")
		}
		if _, exists := c.tools[def.Name]; exists {
			return nil, fmt.Errorf("tool already registered for %s", def.Name)
		}
		c.tools[def.Name] = t
		c.order = append(c.order, def)
	}
	return c, nil
}

// MustCatalog builds a catalog or panics.
func MustCatalog(tools ...Tool) *Catalog {
	c, err := NewCatalog(tools...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the tool registered under name.
func (c *Catalog) Lookup(name string) (Tool, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// Definitions returns the tool definitions in registration order.
func (c *Catalog) Definitions() []Definition {
	return append([]Definition(nil), c.order...)
}

// Schemas renders the catalog in the model-provider tool format.
func (c *Catalog) Schemas() []llm.Tool {
	out := make([]llm.Tool, 0, len(c.order))
	for _, def := range c.order {
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}

// Len returns the number of tools.
func (c *Catalog) Len() int {
	return len(c.order)
}
