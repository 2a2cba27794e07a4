package ast

import (
	"encoding/json"
	"fmt"
)

// Programs are stored as JSON: a program file is an array of elements, and
// each element is an object whose "type" field names the node kind. The
// struct json tags in ast.go define the encoded shape; decoding goes
// through an envelope because Element is an interface.

type elementEnvelope struct {
	Type     NodeType          `json:"type"`
	Name     string            `json:"name"`
	Text     string            `json:"text"`
	Value    *int64            `json:"value"`
	Expr     json.RawMessage   `json:"expr"`
	Block    *blockEnvelope    `json:"block"`
	Elements []json.RawMessage `json:"elements"`
}

type blockEnvelope struct {
	Params   []string          `json:"params"`
	Commands []json.RawMessage `json:"commands"`
}

// DecodeElement parses a single element from JSON.
func DecodeElement(data []byte) (Element, error) {
	el, err := decodeElement(data)
	if err != nil {
		return nil, fmt.Errorf("ast: %w", err)
	}
	return el, nil
}

// DecodeProgram parses a program file: a JSON array of elements.
func DecodeProgram(data []byte) ([]Element, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("ast: decode program: %w", err)
	}
	elements := make([]Element, 0, len(raw))
	for idx, item := range raw {
		el, err := decodeElement(item)
		if err != nil {
			return nil, fmt.Errorf("ast: element %d: %w", idx, err)
		}
		elements = append(elements, el)
	}
	return elements, nil
}

// EncodeProgram renders elements as an indented JSON program file.
func EncodeProgram(elements []Element) ([]byte, error) {
	data, err := json.MarshalIndent(elements, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ast: encode program: %w", err)
	}
	return append(data, '\n'), nil
}

func decodeElement(data []byte) (Element, error) {
	var env elementEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return env.toElement()
}

func (env *elementEnvelope) toElement() (Element, error) {
	switch env.Type {
	case NodeVariable:
		if env.Name == "" {
			return nil, fmt.Errorf("Variable requires a name")
		}
		return NewVariable(env.Name), nil
	case NodeBare:
		return NewBare(env.Text), nil
	case NodeNumber:
		if env.Value == nil {
			return nil, fmt.Errorf("Number requires a value")
		}
		return NewNumber(*env.Value), nil
	case NodeSet:
		if env.Name == "" {
			return nil, fmt.Errorf("Set requires a name")
		}
		if len(env.Expr) == 0 {
			return nil, fmt.Errorf("Set %q requires an expr", env.Name)
		}
		expr, err := decodeElement(env.Expr)
		if err != nil {
			return nil, fmt.Errorf("Set %q expr: %w", env.Name, err)
		}
		return NewSet(env.Name, expr), nil
	case NodeBlock:
		if env.Block == nil {
			return nil, fmt.Errorf("Block requires a block body")
		}
		block, err := env.Block.toBlock()
		if err != nil {
			return nil, err
		}
		return NewBlockLiteral(block), nil
	case NodeCall:
		if len(env.Elements) == 0 {
			return nil, fmt.Errorf("Call requires at least one element")
		}
		elements := make([]Element, 0, len(env.Elements))
		for idx, item := range env.Elements {
			el, err := decodeElement(item)
			if err != nil {
				return nil, fmt.Errorf("call element %d: %w", idx, err)
			}
			elements = append(elements, el)
		}
		return NewCall(elements), nil
	case "":
		return nil, fmt.Errorf("element missing type")
	default:
		return nil, fmt.Errorf("unknown element type %q", env.Type)
	}
}

func (env *blockEnvelope) toBlock() (*Block, error) {
	commands := make([]Element, 0, len(env.Commands))
	for idx, item := range env.Commands {
		el, err := decodeElement(item)
		if err != nil {
			return nil, fmt.Errorf("block command %d: %w", idx, err)
		}
		commands = append(commands, el)
	}
	return NewBlock(env.Params, commands), nil
}
