// Package main implements the nesgo NES emulator command-line front end.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"nesgo/internal/app"
	"nesgo/internal/debugger"
	"nesgo/internal/testrom"
	"nesgo/internal/version"
)

// Ambient flags shared by every subcommand, registered onto the default
// flag.CommandLine alongside glog's own -v/-logtostderr (registered by the
// glog package's init), so one Parse call after the subcommand word sees
// all of them together.
var (
	configPath = flag.String("config", "", "path to configuration file")
	headless   = flag.Bool("headless", false, "run command: start without a window")
	maxCycles  = flag.Uint64("max-cycles", 50_000_000, "testrom command: CPU cycle budget before declaring a timeout")
)

func main() {
	defer glog.Flush()
	// A panic escaping a subcommand (such as an unsupported mapper id at ROM
	// load) is logged as a fatal diagnostic, which exits with a non-zero code.
	defer func() {
		if r := recover(); r != nil {
			glog.Fatalf("nesgo: %v", r)
		}
	}()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	subcommand := os.Args[1]
	if subcommand == "version" {
		version.PrintBuildInfo()
		return
	}
	if subcommand == "-h" || subcommand == "--help" || subcommand == "help" {
		printUsage()
		return
	}

	flag.CommandLine.Parse(os.Args[2:])

	var err error
	switch subcommand {
	case "run":
		err = runCommand(flag.Args())
	case "debug":
		err = debugCommand(flag.Args())
	case "testrom":
		err = testromCommand(flag.Args())
	default:
		fmt.Fprintf(os.Stderr, "nesgo: unknown command %q\n", subcommand)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		glog.Fatalf("nesgo %s: %v", subcommand, err)
	}
}

func resolvedConfigPath() string {
	if *configPath != "" {
		return *configPath
	}
	return app.GetDefaultConfigPath()
}

func runCommand(positional []string) error {
	if len(positional) < 1 {
		return fmt.Errorf("usage: nesgo run [-headless] [-config path] <rom>")
	}
	romPath := positional[0]

	application, err := app.NewApplicationWithMode(resolvedConfigPath(), *headless)
	if err != nil {
		return fmt.Errorf("creating application: %w", err)
	}
	defer func() {
		if err := application.Cleanup(); err != nil {
			glog.Errorf("application cleanup: %v", err)
		}
	}()

	if *headless {
		application.GetConfig().Video.Backend = "headless"
	}

	if err := application.LoadROM(romPath); err != nil {
		return fmt.Errorf("loading ROM: %w", err)
	}
	glog.Infof("loaded ROM %s", romPath)

	if err := application.Run(); err != nil {
		return fmt.Errorf("running: %w", err)
	}

	glog.Infof("session complete: %d frames in %v (%.1f fps)",
		application.GetFrameCount(), application.GetUptime(), application.GetFPS())
	return nil
}

func debugCommand(positional []string) error {
	if len(positional) < 1 {
		return fmt.Errorf("usage: nesgo debug [-config path] <rom>")
	}
	romPath := positional[0]

	application, err := app.NewApplicationWithMode(resolvedConfigPath(), true)
	if err != nil {
		return fmt.Errorf("creating application: %w", err)
	}
	defer func() {
		if err := application.Cleanup(); err != nil {
			glog.Errorf("application cleanup: %v", err)
		}
	}()

	if err := application.LoadROM(romPath); err != nil {
		return fmt.Errorf("loading ROM: %w", err)
	}
	glog.Infof("loaded ROM %s for debugging", romPath)

	repl := debugger.NewStdio(application.GetBus())
	return repl.Run()
}

// testromCommand runs one or more blargg-style status-byte test ROMs and
// reports pass/fail for each, per the $6000/$6004 protocol.
func testromCommand(positional []string) error {
	if len(positional) < 1 {
		return fmt.Errorf("usage: nesgo testrom [-max-cycles N] <rom> [rom...]")
	}

	failures := 0
	for _, romPath := range positional {
		result, err := testrom.Run(romPath, *maxCycles)
		if err != nil {
			glog.Errorf("%s: %v", romPath, err)
			failures++
			continue
		}
		switch {
		case result.Passed:
			fmt.Printf("PASS  %s (%d cycles)\n", romPath, result.Cycles)
		case result.TimedOut:
			failures++
			fmt.Printf("TIMEOUT  %s (status=%#02x after %d cycles)\n", romPath, result.StatusByte, result.Cycles)
		default:
			failures++
			fmt.Printf("FAIL  %s (status=%#02x)", romPath, result.StatusByte)
			if result.Message != "" {
				fmt.Printf(": %s", result.Message)
			}
			fmt.Println()
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d test ROMs did not pass", failures, len(positional))
	}
	return nil
}

func printUsage() {
	fmt.Println("nesgo - Go NES Emulator")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  nesgo run [-headless] [-config path] <rom>   Play a ROM")
	fmt.Println("  nesgo debug [-config path] <rom>              Interactive debugger REPL")
	fmt.Println("  nesgo testrom [-max-cycles N] <rom...>        Run blargg-style status-byte test ROMs")
	fmt.Println("  nesgo version                                 Show build info")
	fmt.Println()
	fmt.Println("AMBIENT FLAGS (glog):")
	fmt.Println("  -v <level>          verbosity level")
	fmt.Println("  -logtostderr        log to stderr instead of files")
	fmt.Println()
	fmt.Println("DEBUGGER COMMANDS (one per line once in `nesgo debug`):")
	fmt.Println("  next [N]            step N CPU instructions (default 1)")
	fmt.Println("  goto <hex-addr>     set the program counter")
	fmt.Println("  run [cycles]        free-run for the given CPU cycle count")
	fmt.Println("  pattern [hex-addr]  dump an 8x8 CHR tile")
	fmt.Println("  name-table [0-3]    dump a nametable's tile indices")
	fmt.Println("  palette [0-7]       dump a 4-entry palette")
	fmt.Println("  mem <hex-addr>      read one CPU-bus byte")
	fmt.Println("  screenshot [path]   write the frame buffer as a PPM image")
	fmt.Println("  exit                quit the debugger")
}
