// Command chatctl inspects and exercises the configured AI providers
// without going through the web server.
package main

import (
	"os"

	_ "github.com/nulzo/chat-router/internal/llm/all"
)

func main() {
	if err := newRootCmd(os.Stdout, loadProviders).Execute(); err != nil {
		os.Exit(1)
	}
}
