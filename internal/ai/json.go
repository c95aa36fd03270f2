package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput is returned when a model response is not the expected JSON object
var ErrMalformedOutput = errors.New("malformed model output")

// stripMarkdownCodeBlock extracts the outermost JSON object from a response
// that may be wrapped in a markdown fence.
func stripMarkdownCodeBlock(response string) string {
	response = strings.TrimSpace(response)

	startIdx := strings.Index(response, "{")
	if startIdx == -1 {
		return response
	}

	endIdx := strings.LastIndex(response, "}")
	if endIdx == -1 || endIdx < startIdx {
		return response
	}

	return response[startIdx : endIdx+1]
}

// DecodeJSON parses a model response into v. Anything that is not a JSON
// object is reported as ErrMalformedOutput.
func DecodeJSON(response string, v interface{}) error {
	cleaned := stripMarkdownCodeBlock(response)
	if !strings.HasPrefix(cleaned, "{") {
		return fmt.Errorf("%w: response is not a JSON object", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}
