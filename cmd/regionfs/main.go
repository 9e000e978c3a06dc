// Command regionfs mounts an in-memory region filesystem over FUSE.
//
// The filesystem's entire state lives in one fixed-size memory region.
// With a backing file configured the region is mapped from it with
// MAP_SHARED, so every mutation lands in the page cache and the image
// survives unmount/remount byte-for-byte; without one the region is
// anonymous memory and the filesystem is ephemeral.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/regionfs/internal/logger"
	"github.com/marmos91/regionfs/pkg/config"
	"github.com/marmos91/regionfs/pkg/fs"
	"github.com/marmos91/regionfs/pkg/fuse"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	writeConfig := flag.Bool("write-config", false, "print the default configuration as YAML and exit")
	mountpoint := flag.String("mount", "", "override the configured mountpoint")
	restoreName := flag.String("restore", "", "seed the region from this snapshot before mounting")
	saveName := flag.String("snapshot-on-exit", "", "save the region under this snapshot name at shutdown")
	flag.Parse()

	if *writeConfig {
		if err := dumpDefaultConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "regionfs: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*configPath, *mountpoint, *restoreName, *saveName); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// dumpDefaultConfig writes the fully defaulted configuration to stdout,
// ready to be saved and edited.
func dumpDefaultConfig() error {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	_, err = os.Stdout.Write(out)
	return err
}

func run(configPath, mountpoint, restoreName, saveName string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.Logging.Level)
	if mountpoint != "" {
		cfg.Mount.Mountpoint = mountpoint
	}

	store, err := config.CreateSnapshotStore(ctx, &cfg.Snapshot)
	if err != nil {
		return err
	}
	if (restoreName != "" || saveName != "") && store == nil {
		return fmt.Errorf("snapshot options given but no snapshot store is configured")
	}

	region, cleanup, err := mapRegion(&cfg.Region)
	if err != nil {
		return err
	}
	defer cleanup()

	if restoreName != "" {
		image, err := store.Load(ctx, restoreName)
		if err != nil {
			return err
		}
		if len(image) != len(region) {
			return fmt.Errorf("snapshot %s holds %d bytes but the region is %d bytes",
				restoreName, len(image), len(region))
		}
		copy(region, image)
		logger.Info("region restored from snapshot %q", restoreName)
	}

	fsys, err := fs.New(region)
	if err != nil {
		return err
	}

	server, err := fuse.Mount(fuse.Options{
		Mountpoint: cfg.Mount.Mountpoint,
		Filesystem: fsys,
		FsName:     cfg.Mount.FsName,
		AllowOther: cfg.Mount.AllowOther,
		Debug:      cfg.Mount.Debug,
	})
	if err != nil {
		return err
	}
	logger.Info("filesystem mounted at %s (%d bytes, backing file %q)",
		cfg.Mount.Mountpoint, cfg.Region.Size, cfg.Region.BackingFile)

	// Unmount on SIGINT/SIGTERM; Wait returns once the kernel lets go.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logger.Info("received %v, unmounting", sig)
		if err := server.Unmount(); err != nil {
			logger.Error("unmount failed: %v", err)
		}
	}()
	server.Wait()

	if saveName != "" {
		if err := store.Save(ctx, saveName, region); err != nil {
			return err
		}
		logger.Info("region saved as snapshot %q", saveName)
	}
	return nil
}

// mapRegion produces the region buffer: a MAP_SHARED mapping of the
// backing file when one is configured, anonymous memory otherwise. The
// returned cleanup syncs and unmaps; it must run after the filesystem
// is no longer in use.
func mapRegion(cfg *config.RegionConfig) ([]byte, func(), error) {
	if cfg.BackingFile == "" {
		return make([]byte, cfg.Size), func() {}, nil
	}

	f, err := os.OpenFile(cfg.BackingFile, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening backing file %s: %w", cfg.BackingFile, err)
	}
	if err := f.Truncate(int64(cfg.Size)); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("sizing backing file %s: %w", cfg.BackingFile, err)
	}

	buf, err := unix.Mmap(int(f.Fd()), 0, int(cfg.Size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("mapping backing file %s: %w", cfg.BackingFile, err)
	}
	// The mapping outlives the descriptor.
	f.Close()

	cleanup := func() {
		if err := unix.Msync(buf, unix.MS_SYNC); err != nil {
			logger.Error("msync of backing file failed: %v", err)
		}
		if err := unix.Munmap(buf); err != nil {
			logger.Error("munmap of backing file failed: %v", err)
		}
	}
	return buf, cleanup, nil
}
