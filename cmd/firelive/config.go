package main

import (
	"fmt"
	"os"

	"github.com/looplj/firelive/conf"
)

func handleConfigCommand(in []string) {
	a := parseArgs(in)

	switch a.arg(0) {
	case "preview":
		configPreview(a.get("--format", "yml"))
	case "validate":
		configValidate()
	default:
		fmt.Println("Usage: firelive config <preview|validate>")
		os.Exit(1)
	}
}

func configPreview(format string) {
	config, err := conf.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	output, err := render(config, format)
	if err != nil {
		fmt.Printf("Failed to preview config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(output)
}

func configValidate() {
	config, err := conf.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	errors := config.Validate()

	if len(errors) == 0 {
		fmt.Println("Configuration is valid!")
		return
	}

	fmt.Println("Configuration validation failed:")

	for _, err := range errors {
		fmt.Printf("  - %s\n", err)
	}

	os.Exit(1)
}
