package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/client"
	"github.com/PTCuong-1102/ChitChat-TestNeon/internal/config"
)

func main() {
	godotenv.Load()

	model := client.NewApp(config.LoadClientConfig())

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "client exited: %v\n", err)
		os.Exit(1)
	}
}
