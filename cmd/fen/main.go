// fen - host binary for the Fen command language
//
// Usage:
//   fen script.fen            # evaluate a script file
//   fen -                     # evaluate standard input
//   fen -d script.fen         # disassemble instead of executing
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tliron/commonlog"

	"github.com/das/fen/config"
	"github.com/das/fen/interp"
	"github.com/das/fen/vfs"

	_ "github.com/tliron/commonlog/simple"
)

var (
	disassemble = flag.Bool("d", false, "Disassemble the script instead of executing it")
	verbosity   = flag.Int("v", 0, "Log verbosity (0 = quiet)")
	configDir   = flag.String("config", "", "Directory containing fen.toml (default: search upward from cwd)")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: fen [-d] [-v N] [-config dir] script.fen | -")
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fen: %v\n", err)
		os.Exit(1)
	}

	v := *verbosity
	if v == 0 {
		v = cfg.Log.Verbosity
	}
	commonlog.Configure(v, nil)

	source, err := readScript(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "fen: %v\n", err)
		os.Exit(1)
	}

	i := interp.New()
	defer i.Close()
	i.RecursionLimit = cfg.Interp.RecursionLimit
	if cfg.UnitCache.Enabled {
		store, err := unitStore(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fen: %v\n", err)
			os.Exit(1)
		}
		i.SetUnitStore(store)
	}

	if err := registerMounts(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "fen: %v\n", err)
		os.Exit(1)
	}
	vfs.Install(i)

	if *disassemble {
		u, err := i.Compile(source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fen: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(u.DisassembleWithName(flag.Arg(0)))
		return
	}

	// Ctrl-C cancels the running script instead of killing the host.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	stop := i.WatchContext(ctx)
	defer stop()

	for _, lib := range cfg.Interp.LibraryPath {
		if !filepath.IsAbs(lib) && cfg.Dir != "" {
			lib = filepath.Join(cfg.Dir, lib)
		}
		data, err := os.ReadFile(lib)
		if err != nil {
			fmt.Fprintf(os.Stderr, "fen: %v\n", err)
			os.Exit(1)
		}
		if _, err := i.Run(string(data)); err != nil {
			fmt.Fprintf(os.Stderr, "fen: library %s: %v\n", lib, err)
			os.Exit(1)
		}
	}

	result, err := i.Run(source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if info := i.ErrorInfo().String(); info != "" {
			fmt.Fprintln(os.Stderr, info)
		}
		os.Exit(1)
	}
	if result != "" {
		fmt.Println(result)
	}
}

func unitStore(cfg *config.Config) (*interp.UnitStore, error) {
	if cfg.UnitCache.Dir == "" {
		return interp.NewUnitStore(), nil
	}
	dir := cfg.UnitCache.Dir
	if !filepath.IsAbs(dir) && cfg.Dir != "" {
		dir = filepath.Join(cfg.Dir, dir)
	}
	return interp.NewDiskUnitStore(dir)
}

func loadConfig() (*config.Config, error) {
	if *configDir != "" {
		return config.Load(*configDir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return config.Default(), nil
	}
	cfg, err := config.FindAndLoad(cwd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

func readScript(arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("cannot read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", arg, err)
	}
	return string(data), nil
}

func registerMounts(cfg *config.Config) error {
	for _, m := range cfg.Filesystems {
		switch m.Kind {
		case "mem":
			vfs.Register(vfs.NewMemFS(m.Prefix), nil)
		case "sqlite":
			f, err := vfs.NewSQLFS(m.Prefix, m.Path)
			if err != nil {
				return fmt.Errorf("mounting %s: %w", m.Prefix, err)
			}
			vfs.Register(f, nil)
		default:
			return fmt.Errorf("unknown filesystem kind %q", m.Kind)
		}
	}
	return nil
}
