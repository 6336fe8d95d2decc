// Package parsing turns untrusted input into canonical ContentCreatorInfo records.
//
// ParseCreatorInfo is the boundary step for JSON handed to the system (files, HTTP
// bodies, stored artifacts). ParseAnswer is the lenient parser for free-text LLM
// answers and never fails.
package parsing

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/jonathan/creator-persona/internal/llm"
	"github.com/jonathan/creator-persona/internal/schemas"
	"github.com/jonathan/creator-persona/internal/types"
)

// ParseCreatorInfo normalizes any accepted input shape into a validated, total
// ContentCreatorInfo. Accepted shapes are a JSON object, a JSON string whose
// content is a JSON object, and either of those wrapped in a markdown code fence.
func ParseCreatorInfo(data []byte) (*types.ContentCreatorInfo, error) {
	raw, err := unwrapJSONObject(data)
	if err != nil {
		return nil, err
	}

	if err := schemas.ValidateCreatorInfo(raw); err != nil {
		return nil, &ValidationError{Message: "content creator info does not match schema", Cause: err}
	}

	var info types.ContentCreatorInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, &ParseError{Message: "failed to decode content creator info", Cause: err}
	}
	info.EnsureDefaults()
	return &info, nil
}

// ParseCreatorInfoFile reads path and passes its content through ParseCreatorInfo.
func ParseCreatorInfoFile(path string) (*types.ContentCreatorInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Message: "failed to read " + path, Cause: err}
	}
	return ParseCreatorInfo(data)
}

// unwrapJSONObject strips one level of string encoding and code fences.
func unwrapJSONObject(data []byte) ([]byte, error) {
	text := bytes.TrimSpace(data)
	if len(text) == 0 {
		return nil, &ParseError{Message: "input is empty"}
	}

	if text[0] == '"' {
		var inner string
		if err := json.Unmarshal(text, &inner); err != nil {
			return nil, &ParseError{Message: "invalid JSON string", Cause: err}
		}
		text = []byte(inner)
	}

	text = bytes.TrimSpace([]byte(llm.CleanJSONBlock(string(text))))
	if len(text) == 0 || text[0] != '{' {
		return nil, &ParseError{Message: "expected a JSON object"}
	}
	if !json.Valid(text) {
		return nil, &ParseError{Message: "invalid JSON object"}
	}
	return text, nil
}
