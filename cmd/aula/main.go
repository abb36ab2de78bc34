package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	daemonAddr = "http://127.0.0.1:8080"
	pidFile    = "aulad.pid"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "activity":
		err = cmdActivity(os.Args[2:])
	case "progress":
		err = cmdProgress(os.Args[2:])
	case "mcp":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("aula %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Aula - Math Activities for Young Learners

Usage:
  aula <command> [arguments]

Daemon Commands:
  start              Start the Aula daemon
  stop               Stop the Aula daemon
  status             Show daemon status
  logs               View daemon logs

Activity Commands:
  activity list      List available activities
  activity show      Show one activity's details
  activity validate  Validate an activity document

Progress Commands:
  progress           List stored progress records
  progress summary   Show totals across activities

Integration Commands:
  mcp                Start MCP server (for tutor agents)

Other:
  help               Show this help message
  version            Show version information

Examples:
  aula start                      # Start daemon
  aula activity list              # List activities
  aula activity validate sum.yaml # Check a document before publishing
  aula progress summary           # Stars and attempts at a glance
  aula mcp                        # Start MCP server on stdio`)
}

// renderStars shows a star rating as filled and empty glyphs.
func renderStars(rating, max int) string {
	if rating > max {
		rating = max
	}
	if rating < 0 {
		rating = 0
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", max-rating)
}
