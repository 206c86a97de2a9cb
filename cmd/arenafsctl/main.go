// arenafsctl formats, inspects, and mounts arena-backed filesystems.
//
// A github.com/urfave/cli/v2 app whose Action wires up logging, opens the
// backing resource, and either runs to completion (mkfs, stat) or blocks
// serving a mount until signalled (mount), wrapping every returned error
// with github.com/pkg/errors.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/arenafs/arenafs/arena"
	"github.com/arenafs/arenafs/fsops"
	"github.com/arenafs/arenafs/fuseadapter"
	"github.com/arenafs/arenafs/logging"
)

func main() {
	app := &cli.App{
		Name:  "arenafsctl",
		Usage: "format, inspect, and mount arena-backed filesystems",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "verbosity", Aliases: []string{"v"}, Value: 1, Usage: "debug log verbosity"},
		},
		Before: func(c *cli.Context) error {
			logging.SetLevel(c.Uint64("verbosity"))
			return nil
		},
		Commands: []*cli.Command{
			mkfsCommand,
			statCommand,
			mountCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		logging.Log.WithError(err).Fatal("arenafsctl failed")
	}
}

var mkfsCommand = &cli.Command{
	Name:      "mkfs",
	Usage:     "create a new arena-backed file",
	ArgsUsage: "<path> <size-bytes>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return errors.New("usage: arenafsctl mkfs <path> <size-bytes>")
		}
		path := c.Args().Get(0)
		var size int
		if _, err := fmt.Sscanf(c.Args().Get(1), "%d", &size); err != nil {
			return errors.Wrap(err, "parsing size")
		}

		ar, err := arena.Create(path, size)
		if err != nil {
			return errors.Wrap(err, "creating arena")
		}
		defer ar.Unmount()

		if _, err := fsops.Mount(ar); err != nil {
			return errors.Wrap(err, "formatting arena")
		}
		fmt.Printf("formatted %s (%d bytes)\n", path, size)
		return nil
	},
}

var statCommand = &cli.Command{
	Name:      "stat",
	Usage:     "report statfs-style usage for an arena-backed file",
	ArgsUsage: "<path>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return errors.New("usage: arenafsctl stat <path>")
		}
		ar, err := arena.Open(c.Args().Get(0))
		if err != nil {
			return errors.Wrap(err, "opening arena")
		}
		defer ar.Unmount()

		fs, err := fsops.Mount(ar)
		if err != nil {
			return errors.Wrap(err, "mounting arena")
		}
		s := fs.Statfs()
		fmt.Printf("block_size=%d blocks=%d free=%d avail=%d name_max=%d\n",
			s.BlockSize, s.Blocks, s.BlocksFree, s.BlocksAvail, s.NameMax)
		return nil
	},
}

var mountCommand = &cli.Command{
	Name:      "mount",
	Usage:     "mount an arena-backed file as a FUSE filesystem",
	ArgsUsage: "<path> <mountpoint>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "debug", Usage: "enable FUSE protocol debug logging"},
	},
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return errors.New("usage: arenafsctl mount <path> <mountpoint>")
		}
		ar, err := arena.Open(c.Args().Get(0))
		if err != nil {
			return errors.Wrap(err, "opening arena")
		}
		defer ar.Unmount()

		fs, err := fsops.Mount(ar)
		if err != nil {
			return errors.Wrap(err, "mounting arena")
		}

		mountPoint := c.Args().Get(1)
		done := make(chan error, 1)
		go func() {
			done <- fuseadapter.Mount(fs, mountPoint, c.Bool("debug"))
		}()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-done:
			return errors.Wrap(err, "fuse server exited")
		case <-sig:
			return syscall.Unmount(mountPoint, 0)
		}
	},
}
