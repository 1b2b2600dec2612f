// The todo binary is the in-memory prototype: a menu-driven session over the
// same task semantics the service exposes, with nothing persisted past exit.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
	"github.com/taskdeck/backend/repository/memory"
	taskUC "github.com/taskdeck/backend/usecase/task"
)

// Single-tenant session; every task belongs to the local user.
const localOwner = "local"

func main() {
	uc := taskUC.New(memory.NewTaskRepository(), nil)
	in := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	for {
		printMenu()
		switch prompt(in, "Select an option: ") {
		case "1":
			addTask(ctx, uc, in)
		case "2":
			viewTasks(ctx, uc)
		case "3":
			updateTask(ctx, uc, in)
		case "4":
			deleteTask(ctx, uc, in)
		case "5":
			toggleTask(ctx, uc, in)
		case "6":
			fmt.Println("Goodbye! All tasks are discarded.")
			return
		default:
			fmt.Println("Invalid option, choose 1-6.")
		}
	}
}

func printMenu() {
	fmt.Println("\n==================================================")
	fmt.Println("TODO APPLICATION - IN-MEMORY SESSION")
	fmt.Println("==================================================")
	fmt.Println("1. Add Task")
	fmt.Println("2. View Tasks")
	fmt.Println("3. Update Task")
	fmt.Println("4. Delete Task")
	fmt.Println("5. Mark Task Complete/Pending")
	fmt.Println("6. Exit")
	fmt.Println("==================================================")
}

func addTask(ctx context.Context, uc *taskUC.UseCase, in *bufio.Scanner) {
	fmt.Println("\n--- Add New Task ---")
	title := prompt(in, "Enter task title: ")
	description := prompt(in, "Enter task description: ")

	task, err := uc.CreateTask(ctx, localOwner, title, description, domain.StatusPending)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Task %d created: %s\n", task.ID, task.Title)
}

func viewTasks(ctx context.Context, uc *taskUC.UseCase) {
	fmt.Println("\n--- All Tasks ---")
	tasks, err := uc.ListTasks(ctx, localOwner, repository.TaskFilter{})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks found. Add a task to get started!")
		return
	}

	fmt.Printf("%-5s | %-30s | %s\n", "ID", "Title", "Status")
	fmt.Println(strings.Repeat("-", 60))
	for _, task := range tasks {
		title := task.Title
		if len(title) > 30 {
			title = title[:27] + "..."
		}
		fmt.Printf("%-5d | %-30s | %s\n", task.ID, title, task.Status)
		if task.Description != "" {
			fmt.Printf("       Description: %s\n", task.Description)
		}
	}
}

func updateTask(ctx context.Context, uc *taskUC.UseCase, in *bufio.Scanner) {
	fmt.Println("\n--- Update Task ---")
	id, ok := promptID(in)
	if !ok {
		return
	}

	fmt.Println("Leave a field blank to keep its current value.")
	patch := domain.TaskPatch{}
	if title := prompt(in, "New title: "); title != "" {
		patch.Title = &title
	}
	if description := prompt(in, "New description: "); description != "" {
		patch.Description = &description
	}
	if patch.IsEmpty() {
		fmt.Println("Nothing to change.")
		return
	}

	task, err := uc.UpdateTask(ctx, localOwner, id, patch)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Task %d updated: %s\n", task.ID, task.Title)
}

func deleteTask(ctx context.Context, uc *taskUC.UseCase, in *bufio.Scanner) {
	fmt.Println("\n--- Delete Task ---")
	id, ok := promptID(in)
	if !ok {
		return
	}
	if err := uc.DeleteTask(ctx, localOwner, id); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Task %d deleted.\n", id)
}

func toggleTask(ctx context.Context, uc *taskUC.UseCase, in *bufio.Scanner) {
	fmt.Println("\n--- Mark Task Complete/Pending ---")
	id, ok := promptID(in)
	if !ok {
		return
	}

	task, err := uc.GetTask(ctx, localOwner, id)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	next := domain.StatusCompleted
	if task.IsCompleted() {
		next = domain.StatusPending
	}
	if _, err := uc.UpdateTask(ctx, localOwner, id, domain.TaskPatch{Status: &next}); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Task %d is now %s.\n", id, next)
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

func promptID(in *bufio.Scanner) (int64, bool) {
	raw := prompt(in, "Enter task ID: ")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		fmt.Println("Invalid ID. Please enter a positive number.")
		return 0, false
	}
	return id, true
}
