package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/integrii/flaggy"
)

const (
	appName = "looperctl"
	appDesc = "terminal dashboard for loopdeck"
)

var version = "unknown"

func main() {
	addr := "http://localhost:8080"

	parser := flaggy.NewParser(appName)
	parser.Description = appDesc
	parser.Version = version
	parser.String(&addr, "a", "addr", "looperd HTTP address")
	if err := parser.Parse(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	client := newAPIClient(addr)
	m := newModel(client)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
