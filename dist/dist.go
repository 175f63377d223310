// Package dist contains embedded copies of files distributed with ticks.
package dist

import _ "embed"

//go:embed ticks.config.json
var exampleConfigJSON []byte

// ExampleConfigJSON returns the contents of "dist/ticks.config.json".
func ExampleConfigJSON() []byte {
	return exampleConfigJSON
}
