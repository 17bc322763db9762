package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/winhost/internal/config"
	"github.com/1broseidon/winhost/internal/ipc"
	"github.com/1broseidon/winhost/internal/surface"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(runHost(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "reload":
		os.Exit(runReload(os.Args[2:]))
	case "fullscreen":
		os.Exit(runFullscreen(os.Args[2:]))
	case "focus":
		os.Exit(runFocus(os.Args[2:]))
	case "close":
		os.Exit(runClose(os.Args[2:]))
	case "simulate":
		os.Exit(runSimulate(os.Args[2:]))
	case "state":
		os.Exit(runState(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: winhost <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  run                 Start the window host (foreground)")
	fmt.Fprintln(w, "  status              List open windows")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  reload              Reload window content (or --config to re-read config)")
	fmt.Fprintln(w, "  fullscreen          Enter, leave or toggle fullscreen")
	fmt.Fprintln(w, "  focus               Focus a window")
	fmt.Fprintln(w, "  close               Close a window")
	fmt.Fprintln(w, "  simulate            Inject a content failure")
	fmt.Fprintln(w, "  state               Print the state a window would persist")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'winhost <command> --help' for command-specific options.")
}

// newClientFlagSet returns a flag set with the --window flag shared by every
// client command.
func newClientFlagSet(name, usage string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	id := fs.String("window", "", "Window id (default: the oldest open window)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winhost "+usage)
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	return fs, id
}

func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := fs.Bool("json", false, "Print raw JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winhost status [--json]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show open windows via IPC.")
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *asJSON {
		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	fmt.Println(renderStatus(status))
	return 0
}

func runReload(args []string) int {
	fs, id := newClientFlagSet("reload", "reload [--window ID] [--disable-extensions=true|false] [--config]")
	reloadConfig := fs.Bool("config", false, "Re-read the host configuration file instead")
	var disable optionalBool
	fs.Var(&disable, "disable-extensions", "Override whether extensions are disabled after the reload")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	client := ipc.NewClient()
	if *reloadConfig {
		if err := client.ReloadConfig(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config reloaded")
		return 0
	}
	if err := client.Reload(*id, disable.ptr()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runFullscreen(args []string) int {
	fs, id := newClientFlagSet("fullscreen", "fullscreen [--window ID] on|off|toggle")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	action := ipc.FullscreenToggle
	if fs.NArg() > 0 {
		action = ipc.FullscreenAction(fs.Arg(0))
	}
	if err := ipc.NewClient().Fullscreen(*id, action); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runFocus(args []string) int {
	fs, id := newClientFlagSet("focus", "focus [--window ID] [--mode transfer|notify|force]")
	mode := fs.String("mode", "transfer", "Focus mode")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if _, err := ipc.ParseFocusMode(*mode); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := ipc.NewClient().Focus(*id, *mode); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runClose(args []string) int {
	fs, id := newClientFlagSet("close", "close [--window ID]")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if err := ipc.NewClient().Close(*id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runSimulate(args []string) int {
	fs, id := newClientFlagSet("simulate", "simulate [--window ID] [--reason R] [--exit-code N] unresponsive|responsive|process_gone|load_failed")
	reason := fs.String("reason", "", "Process-gone reason (crashed, killed, oom, clean-exit, ...)")
	exitCode := fs.Int("exit-code", 0, "Exit code reported with the failure")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	ev := surface.FailureEvent{
		Kind:     surface.FailureKind(fs.Arg(0)),
		Reason:   *reason,
		ExitCode: *exitCode,
	}
	if !ev.Kind.Valid() {
		fmt.Fprintf(os.Stderr, "unknown failure kind %q\n", fs.Arg(0))
		return 2
	}
	if err := ipc.NewClient().SimulateFailure(*id, ev); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runState(args []string) int {
	fs, id := newClientFlagSet("state", "state [--window ID]")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	data, err := ipc.NewClient().GetState(*id)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	out, err := yaml.Marshal(data)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Print(string(out))
	return 0
}

// optionalBool is a bool flag that remembers whether it was set.
type optionalBool struct {
	set   bool
	value bool
}

func (b *optionalBool) String() string {
	if b == nil || !b.set {
		return ""
	}
	return fmt.Sprint(b.value)
}

func (b *optionalBool) Set(s string) error {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		b.value = true
	case "false", "0", "no":
		b.value = false
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	b.set = true
	return nil
}

func (b *optionalBool) IsBoolFlag() bool { return true }

func (b *optionalBool) ptr() *bool {
	if !b.set {
		return nil
	}
	v := b.value
	return &v
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  winhost config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  winhost config print [--path PATH] [--effective|--defaults]")
		fmt.Fprintln(os.Stderr, "  winhost config explain [--path PATH] <yaml.path>")
		return 2
	}

	switch args[0] {
	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/winhost/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if _, err := loadConfig(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/winhost/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		_ = fs.Bool("effective", false, "Print effective config (default)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			for _, f := range res.Files {
				fmt.Printf("# file: %s\n", f)
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := flag.NewFlagSet("explain", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/winhost/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "explain requires <yaml.path>")
			return 2
		}
		queryPath := fs.Arg(0)

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
