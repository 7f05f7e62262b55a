// Package cmd implements the nativekit CLI commands.
//
// The root command dispatches to subcommands (run, events) registered from
// their own files.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-drift/nativekit/internal/config"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// Command represents a CLI command.
type Command struct {
	Name        string
	Short       string
	Long        string
	Usage       string
	Run         func(env *Env, args []string) error
	SubCommands []*Command
}

// Env carries global flag values and output streams to commands.
type Env struct {
	ConfigPath string
	Stdout     io.Writer
	Stderr     io.Writer
}

// LoadConfig resolves the configuration for this invocation.
func (e *Env) LoadConfig() (*config.Config, error) {
	return config.Load(e.ConfigPath)
}

var rootCmd = &Command{
	Name:  "nativekit",
	Short: "nativekit - native wrappers with a uniform event surface",
	Long: `nativekit exposes native objects (sounds, notifications, views, HTTP
requests, background tasks) through one on/off/emit event surface, to Go
and to JavaScript.

Use "nativekit <command> --help" for more information about a command.`,
	Usage: "nativekit <command> [flags]",
}

// Commands registered with the CLI.
var commands = make(map[string]*Command)

// RegisterCommand adds a command to the CLI.
func RegisterCommand(cmd *Command) {
	commands[cmd.Name] = cmd
	rootCmd.SubCommands = append(rootCmd.SubCommands, cmd)
}

// Execute runs the CLI with the given arguments.
func Execute(args []string) error {
	return execute(&Env{Stdout: os.Stdout, Stderr: os.Stderr}, args)
}

func execute(env *Env, args []string) error {
	if len(args) == 0 {
		printHelp(env.Stdout, rootCmd)
		return nil
	}

	var filteredArgs []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-h", "--help", "help":
			if len(filteredArgs) == 0 {
				printHelp(env.Stdout, rootCmd)
				return nil
			}
			filteredArgs = append(filteredArgs, arg)
		case "-v", "--version", "version":
			if len(filteredArgs) == 0 {
				fmt.Fprintf(env.Stdout, "nativekit version %s (built %s)\n", Version, BuildTime)
				return nil
			}
			filteredArgs = append(filteredArgs, arg)
		case "--config":
			if i+1 >= len(args) {
				return fmt.Errorf("--config requires a file path")
			}
			env.ConfigPath = args[i+1]
			i++
		default:
			if strings.HasPrefix(arg, "--config=") {
				env.ConfigPath = strings.TrimPrefix(arg, "--config=")
				continue
			}
			filteredArgs = append(filteredArgs, arg)
		}
	}
	args = filteredArgs

	if len(args) == 0 {
		printHelp(env.Stdout, rootCmd)
		return nil
	}

	cmdName := args[0]
	cmd, ok := commands[cmdName]
	if !ok {
		fmt.Fprintf(env.Stderr, "Error: unknown command %q\n\n", cmdName)
		printHelp(env.Stderr, rootCmd)
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	cmdArgs := args[1:]
	for _, arg := range cmdArgs {
		if arg == "-h" || arg == "--help" || arg == "help" {
			printCommandHelp(env.Stdout, cmd)
			return nil
		}
	}

	return cmd.Run(env, cmdArgs)
}

func printHelp(w io.Writer, cmd *Command) {
	fmt.Fprintln(w, cmd.Long)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s\n", cmd.Usage)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, sub := range cmd.SubCommands {
		fmt.Fprintf(w, "  %-14s %s\n", sub.Name, sub.Short)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -h, --help           Show help for a command")
	fmt.Fprintln(w, "  -v, --version        Show version information")
	fmt.Fprintf(w, "  --config FILE        Configuration file (default: ./%s if present)\n", config.FileName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintf(w, "  %s*          Override any configuration value, e.g. NATIVEKIT_EVENTS_STRICT=true\n", config.EnvPrefix)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  nativekit run demo.js     Run a script on the desktop host")
	fmt.Fprintln(w, "  nativekit events          List the events each wrapper emits")
}

func printCommandHelp(w io.Writer, cmd *Command) {
	fmt.Fprintln(w, cmd.Long)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s\n", cmd.Usage)
}
