// Package tools provides the structured-answer tools offered to the model.
//
// Information Hiding:
// - JSON schema construction hidden behind ToolMetadata.Definition
// - Argument validation internalized per tool
// - Registry implementation details hidden from consumers
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/richinex/reflexion/llm"
)

// ToolParameter defines a parameter schema for a tool. Items describes array
// elements; Properties describes the fields of an object parameter.
type ToolParameter struct {
	Name        string          `json:"name"`
	ParamType   string          `json:"param_type"`
	Description string          `json:"description"`
	Required    bool            `json:"required"`
	Items       *ToolParameter  `json:"items,omitempty"`
	Properties  []ToolParameter `json:"properties,omitempty"`
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Definition converts the metadata to an LLM tool definition.
func (m ToolMetadata) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        m.Name,
		Description: m.Description,
		Parameters:  objectSchema("", m.Parameters),
	}
}

func objectSchema(description string, params []ToolParameter) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	required := []string{}
	for _, p := range params {
		properties[p.Name] = p.schema()
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
	if description != "" {
		schema["description"] = description
	}
	return schema
}

func (p ToolParameter) schema() map[string]interface{} {
	switch p.ParamType {
	case "object":
		return objectSchema(p.Description, p.Properties)
	case "array":
		items := map[string]interface{}{"type": "string"}
		if p.Items != nil {
			items = p.Items.schema()
		}
		return map[string]interface{}{
			"type":        "array",
			"description": p.Description,
			"items":       items,
		}
	default:
		s := map[string]interface{}{"type": p.ParamType}
		if p.Description != "" {
			s["description"] = p.Description
		}
		return s
	}
}

// Tool is the interface that all tools must implement.
//
// Information Hiding: Tool implementations hide their schema and argument
// checks behind this interface.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Validate checks arguments produced by the model.
	Validate(args json.RawMessage) error
}
