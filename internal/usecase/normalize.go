package usecase

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ampgate/ampgate/internal/domain"
)

// Normalize converts an InvocationResult into the canonical content-block
// list of a tools/call response. The backend capability is polymorphic in
// what it returns, so the conversion is an ordered fallback chain:
//
//  1. a content-list result passes through unchanged (richer block types
//     the registry emits are preserved);
//  2. a value that is already block-shaped (type + text) becomes that block;
//  3. a list whose first element is block-shaped is mapped element-wise
//     through the block extractor;
//  4. anything else is serialized as pretty-printed JSON inside a single
//     text block.
func Normalize(result domain.InvocationResult) []mcp.Content {
	if blocks, ok := result.Content(); ok {
		return blocks
	}

	value, ok := result.Value()
	if !ok {
		return nil
	}

	if block, ok := contentFromValue(value); ok {
		return []mcp.Content{block}
	}

	if list, ok := value.([]interface{}); ok && len(list) > 0 {
		if _, ok := contentFromValue(list[0]); ok {
			blocks := make([]mcp.Content, 0, len(list))
			for _, item := range list {
				if block, ok := contentFromValue(item); ok {
					blocks = append(blocks, block)
				} else {
					blocks = append(blocks, jsonTextBlock(item))
				}
			}
			return blocks
		}
	}

	return []mcp.Content{jsonTextBlock(value)}
}

// contentFromValue promotes a decoded map that already carries the block
// shape ({type:"text", text:...}) into an mcp.Content.
func contentFromValue(v interface{}) (mcp.Content, bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	typ, _ := m["type"].(string)
	text, hasText := m["text"].(string)
	if typ != "text" || !hasText {
		return nil, false
	}
	return mcp.NewTextContent(text), true
}

func jsonTextBlock(v interface{}) mcp.Content {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewTextContent(fmt.Sprintf("%v", v))
	}
	return mcp.NewTextContent(string(data))
}
