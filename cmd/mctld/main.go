// Command mctld is the execution-core daemon entry point: it loads
// configuration, wires the scheduler, interception bus, internal handlers,
// macro arena, and firmware transport into a pipeline.Pipeline, and would
// hand that pipeline to the IPC server and transport binding that live
// outside this module's scope.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs" // tunes GOMAXPROCS to the container cgroup quota

	"github.com/joeycumines/mctl/code"
	"github.com/joeycumines/mctl/config"
	"github.com/joeycumines/mctl/firmware"
	"github.com/joeycumines/mctl/handlers"
	"github.com/joeycumines/mctl/intercept"
	"github.com/joeycumines/mctl/macro"
	"github.com/joeycumines/mctl/mlog"
	"github.com/joeycumines/mctl/objectmodel"
	"github.com/joeycumines/mctl/pipeline"
	"github.com/joeycumines/mctl/sched"
)

func main() {
	configPath := flag.String("config", "/etc/mctl/mctld.toml", "path to the daemon's TOML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "mctld:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := mlog.New(os.Stderr)

	dirs := handlers.Directories{
		GCodes:    cfg.Directories.GCodes,
		Macros:    cfg.Directories.Macros,
		System:    cfg.Directories.System,
		Filaments: cfg.Directories.Filters,
		Web:       cfg.Directories.Web,
		Scans:     cfg.Directories.Scans,
	}

	store := objectmodel.New()
	store.Set("state.compatibility", cfg.Compatibility().String())

	arena := macro.NewArena()
	hctx := handlers.NewContext(dirs, store, arena)

	root := context.Background()
	gates := arena.GateResolver()
	scheduler := sched.New(root, func(h code.MacroHandle) sched.Gate { return gates(h) })

	p := &pipeline.Pipeline{
		Scheduler: scheduler,
		Intercept: intercept.NewBus(),
		Handlers:  hctx,
		Firmware:  &firmware.Loopback{},
		Macros:    arena,
		Logger:    logger,
	}
	_ = p // wired here; driven by the IPC server and channel readers, outside this module's scope

	logger.Info().Str(`compatibility`, cfg.Compatibility().String()).Log(`mctld execution core initialized`)
	return nil
}
