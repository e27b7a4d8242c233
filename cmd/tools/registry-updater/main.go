// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"chatbot-engine/pkg/registry"
)

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	checkCmd := flag.NewFlagSet("check-input", flag.ExitOnError)

	// Add command flags
	addPath := addCmd.String("path", registry.DefaultPath, "Path to registry file")
	idAdd := addCmd.String("id", "", "Activity ID (e.g., chat-turn)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Chat Turn)")
	description := addCmd.String("description", "", "Description")
	category := addCmd.String("category", "", "Category (e.g., chat)")
	taskType := addCmd.String("taskType", "", "Camunda Task Type (e.g., chat-turn)")
	version := addCmd.String("version", "1.0.0", "Version")
	implStatus := addCmd.String("status", "planned", "Implementation Status (planned, in-progress, completed, verified)")

	// Update command flags
	updatePath := updateCmd.String("path", registry.DefaultPath, "Path to registry file")
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, etc.)")
	value := updateCmd.String("value", "", "New value for the field")

	validatePath := validateCmd.String("path", registry.DefaultPath, "Path to registry file")

	// check-input validates a variables document against a task type's input schema
	checkPath := checkCmd.String("path", registry.DefaultPath, "Path to registry file")
	checkTaskType := checkCmd.String("taskType", "", "Task type whose input schema to use")
	checkFile := checkCmd.String("file", "", "JSON file with job variables")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *description == "" || *category == "" || *taskType == "" {
			fmt.Println("Error: id, displayName, description, category, and taskType are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		activity := registry.Activity{
			ID:                   *idAdd,
			DisplayName:          *displayName,
			Description:          *description,
			Category:             *category,
			Version:              *version,
			TaskType:             *taskType,
			ImplementationStatus: *implStatus,
			InputSchema:          map[string]interface{}{},
			OutputSchema:         map[string]interface{}{},
			ErrorCodes:           []string{},
			Timeout:              "30s",
			Retries:              3,
			Tags:                 []string{},
		}
		if err := addActivity(*addPath, &activity); err != nil {
			fmt.Printf("Error adding activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added activity: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateActivity(*updatePath, *idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating activity: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(*validatePath)
		if err == nil {
			err = reg.Validate()
		}
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))

	case "check-input":
		checkCmd.Parse(os.Args[2:])
		if *checkTaskType == "" || *checkFile == "" {
			fmt.Println("Error: taskType and file are required for check-input.")
			checkCmd.Usage()
			os.Exit(1)
		}
		if err := checkInput(*checkPath, *checkTaskType, *checkFile); err != nil {
			fmt.Printf("Input rejected: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Input accepted by %s.\n", *checkTaskType)

	case "help":
		fallthrough
	default:
		help()
	}
}

func addActivity(path string, activity *registry.Activity) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.ActivityRegistry{Version: "1.0.0"}
	}

	for _, existing := range reg.Activities {
		if existing.ID == activity.ID {
			return fmt.Errorf("activity with ID %s already exists", activity.ID)
		}
		if existing.TaskType == activity.TaskType {
			return fmt.Errorf("task type %s is already served by %s", activity.TaskType, existing.ID)
		}
	}

	reg.Activities = append(reg.Activities, *activity)
	return saveRegistry(reg, path)
}

func updateActivity(path, id, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	var activity *registry.Activity
	for i := range reg.Activities {
		if reg.Activities[i].ID == id {
			activity = &reg.Activities[i]
			break
		}
	}
	if activity == nil {
		return fmt.Errorf("activity with ID %s not found", id)
	}

	switch field {
	case "status":
		activity.ImplementationStatus = value
	case "version":
		activity.Version = value
	case "displayName":
		activity.DisplayName = value
	case "description":
		activity.Description = value
	case "category":
		activity.Category = value
	case "taskType":
		activity.TaskType = value
	case "timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		activity.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		activity.Retries = retries
	case "inputSchema":
		var schema map[string]interface{}
		if err := json.Unmarshal([]byte(value), &schema); err != nil {
			return fmt.Errorf("invalid inputSchema value: %w", err)
		}
		activity.InputSchema = schema
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := reg.Validate(); err != nil {
		return fmt.Errorf("update would leave registry invalid: %w", err)
	}
	return saveRegistry(reg, path)
}

func checkInput(path, taskType, file string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	activity, ok := reg.Find(taskType)
	if !ok {
		return fmt.Errorf("task type %s is not registered", taskType)
	}
	vars, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read variables: %w", err)
	}
	return activity.ValidateInput(vars)
}

// saveRegistry stamps LastUpdated and writes the registry as indented JSON.
func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  add          Add a new activity to the registry
  update       Update an existing activity's field
  validate     Validate the registry file
  check-input  Validate a job variables file against a task type's input schema
  help         Show this help message

Examples:
  registry-updater add -id score-lead -displayName "Score Lead" -description "Scores a captured lead" -category lead -taskType score-lead
  registry-updater update -id chat-turn -field timeout -value 60s
  registry-updater validate -path configs/activity-registry.json
  registry-updater check-input -taskType chat-turn -file vars.json

Use 'registry-updater <command> -h' for more information about a command.

`)
}
