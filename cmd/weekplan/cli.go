package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"weekplan/internal/bootstrap"
	"weekplan/internal/domain"
	"weekplan/internal/registry"
	"weekplan/internal/session"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(services bootstrap.Services, sink *consoleSink) *cli.App {
	return &cli.App{
		Name:    "weekplan",
		Usage:   "Dictate tasks, prioritize them and place them into weekly slots",
		Version: Version,
		Commands: []*cli.Command{
			captureCmd(services, sink),
			tasksCmd(services),
			prioritizeCmd(services),
			assignCmd(services),
			clearCmd(services),
			boardCmd(services),
			importCmd(services),
			prioritiesCmd(),
		},
	}
}

func captureCmd(services bootstrap.Services, sink *consoleSink) *cli.Command {
	return &cli.Command{
		Name:  "capture",
		Usage: "Start a dictation session; press Enter to stop",
		Action: func(c *cli.Context) error {
			sink.SetLive(true)
			defer sink.SetLive(false)

			captureSession := services.Planner.Session()
			if err := captureSession.Start(c.Context); err != nil {
				return err
			}

			fmt.Println("Speak your tasks. Press Enter to stop.")
			_, _ = bufio.NewReader(os.Stdin).ReadString('\n')

			if err := captureSession.Stop(); err != nil && !errors.Is(err, session.ErrNoActiveSession) {
				return err
			}

			tasks, err := services.Planner.SyncFromFields(c.Context)
			if err != nil {
				return err
			}

			fmt.Printf("Captured %d task(s):\n", len(tasks))
			printTasks(tasks)
			return nil
		},
	}
}

func tasksCmd(services bootstrap.Services) *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "List tasks",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "by-priority", Aliases: []string{"p"}, Usage: "Order by priority, unprioritized last"},
		},
		Action: func(c *cli.Context) error {
			tasks := services.Planner.Tasks()
			if c.Bool("by-priority") {
				tasks = services.Planner.TasksByPriority()
			}
			if len(tasks) == 0 {
				fmt.Println("No tasks. Run `weekplan capture` or `weekplan import`.")
				return nil
			}
			printTasks(tasks)
			return nil
		},
	}
}

func prioritizeCmd(services bootstrap.Services) *cli.Command {
	return &cli.Command{
		Name:      "prioritize",
		Usage:     "Set a task's priority (1-4), or 0 to clear it",
		ArgsUsage: "<task-id> <priority>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("usage: weekplan prioritize <task-id> <priority>")
			}
			id := c.Args().Get(0)
			value, err := strconv.Atoi(c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("priority must be a number between 0 and 4")
			}
			if value == 0 {
				return services.Planner.ClearPriority(c.Context, id)
			}
			priority := domain.Priority(value)
			if !priority.Valid() {
				return fmt.Errorf("priority must be between 1 and 4 (0 clears)")
			}
			return services.Planner.SetPriority(c.Context, id, priority)
		},
	}
}

func assignCmd(services bootstrap.Services) *cli.Command {
	return &cli.Command{
		Name:      "assign",
		Usage:     "Assign a task to a weekly slot",
		ArgsUsage: "<day> <am|pm> <slot> <task-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 4 {
				return fmt.Errorf("usage: weekplan assign <day> <am|pm> <slot> <task-id>")
			}
			day, period, slot, err := parseSlotArgs(c.Args().Slice())
			if err != nil {
				return err
			}
			return services.Planner.Assign(c.Context, day, period, slot, c.Args().Get(3))
		},
	}
}

func clearCmd(services bootstrap.Services) *cli.Command {
	return &cli.Command{
		Name:      "clear",
		Usage:     "Clear a weekly slot",
		ArgsUsage: "<day> <am|pm> <slot>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return fmt.Errorf("usage: weekplan clear <day> <am|pm> <slot>")
			}
			day, period, slot, err := parseSlotArgs(c.Args().Slice())
			if err != nil {
				return err
			}
			return services.Planner.ClearSlot(c.Context, day, period, slot)
		},
	}
}

func boardCmd(services bootstrap.Services) *cli.Command {
	return &cli.Command{
		Name:  "board",
		Usage: "Show the weekly schedule",
		Action: func(c *cli.Context) error {
			for _, day := range domain.Week {
				fmt.Printf("%s\n", titleCase(string(day)))
				for _, period := range []domain.Period{domain.AM, domain.PM} {
					for slot := 1; slot <= domain.SlotsPerPeriod; slot++ {
						task, ok := services.Planner.Lookup(day, period, slot)
						if !ok {
							continue
						}
						fmt.Printf("  %s %d: %s %s\n", period, slot, priorityTag(task.Priority), task.Content)
					}
				}
			}
			return nil
		},
	}
}

func importCmd(services bootstrap.Services) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import tasks from a markdown list",
		ArgsUsage: "<file.md>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("usage: weekplan import <file.md>")
			}
			source, err := os.ReadFile(c.Args().First())
			if err != nil {
				return err
			}
			count, err := services.Planner.ImportMarkdown(c.Context, source)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %d task(s)\n", count)
			return nil
		},
	}
}

func prioritiesCmd() *cli.Command {
	return &cli.Command{
		Name:  "priorities",
		Usage: "Describe the priority levels",
		Action: func(_ *cli.Context) error {
			for _, section := range registry.PrioritySections() {
				fmt.Printf("P%d %-10s %s\n", section.ID, section.Title, section.Description)
			}
			return nil
		},
	}
}

func parseSlotArgs(args []string) (domain.Day, domain.Period, int, error) {
	day := domain.Day(strings.ToLower(args[0]))
	if !day.Valid() {
		return "", "", 0, fmt.Errorf("unknown day %q", args[0])
	}
	period := domain.Period(strings.ToLower(args[1]))
	if !period.Valid() {
		return "", "", 0, fmt.Errorf("period must be am or pm")
	}
	slot, err := strconv.Atoi(args[2])
	if err != nil || slot < 1 || slot > domain.SlotsPerPeriod {
		return "", "", 0, fmt.Errorf("slot must be between 1 and %d", domain.SlotsPerPeriod)
	}
	return day, period, slot, nil
}

func printTasks(tasks []domain.Task) {
	for _, task := range tasks {
		fmt.Printf("%s  %s  %s\n", task.ID, priorityTag(task.Priority), task.Content)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func priorityTag(p domain.Priority) string {
	if !p.Valid() {
		return "[--]"
	}
	return fmt.Sprintf("[P%d]", p)
}
