// The main package for the retrieval-gateway executable.
package main

import (
	"github.com/federated-rag/retrieval-gateway/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
