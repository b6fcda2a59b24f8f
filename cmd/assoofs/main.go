package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/assoofs/pkg/alloc"
	"github.com/weberc2/assoofs/pkg/assoofs"
	"github.com/weberc2/assoofs/pkg/httpapi"
	"github.com/weberc2/assoofs/pkg/inode"
	"github.com/weberc2/assoofs/pkg/log"
	. "github.com/weberc2/assoofs/pkg/types"
)

func main() {
	app := cli.App{
		Name:        appName,
		Description: "create and inspect assoofs images",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "device",
				Usage: "one of `file`, `memory`, `s3`, or `postgres`",
			},
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "the image path, object prefix, or postgres image key",
			},
			&cli.Int64Flag{
				Name:  "offset",
				Usage: "byte offset of the image within a file device",
			},
			&cli.IntFlag{
				Name:  "cache-capacity",
				Usage: "number of blocks to cache; 0 disables the cache",
			},
			&cli.StringFlag{Name: "log-level"},
			&cli.StringFlag{Name: "log-format"},
		},
		Commands: []*cli.Command{{
			Name:        "mkfs",
			Aliases:     []string{"format"},
			Description: "write an empty filesystem to the device",
			Flags: []cli.Flag{
				&cli.Uint64Flag{
					Name:  "blocks",
					Usage: "device size in blocks",
					Value: uint64(MaxBlocks),
				},
			},
			Action: func(ctx *cli.Context) error {
				c, logger, err := setup(ctx)
				if err != nil {
					return err
				}
				blocks := Block(ctx.Uint64("blocks"))
				dev, err := c.OpenDevice(true, blocks)
				if err != nil {
					return err
				}
				defer dev.Close()
				if err := dev.Wipe(); err != nil {
					return err
				}
				if err := assoofs.Format(
					dev,
					assoofs.FormatOptions{Blocks: blocks},
				); err != nil {
					return err
				}
				logger.Info("formatted", "source", dev.Source, "blocks", blocks)
				return nil
			},
		}, {
			Name:        "ls",
			Description: "list the children of a directory",
			ArgsUsage:   "PATH",
			Action: withFileSystem(func(
				fs *assoofs.FileSystem,
				ctx *cli.Context,
			) error {
				dir, err := fs.Walk(pathArg(ctx))
				if err != nil {
					return err
				}
				entries, err := fs.ListChildren(dir)
				if err != nil {
					return err
				}
				for _, entry := range entries {
					if _, err := fmt.Printf(
						"%d\t%s\n",
						entry.Ino,
						entry.Name,
					); err != nil {
						return fmt.Errorf("writing to stdout: %w", err)
					}
				}
				return nil
			}),
		}, {
			Name:        "stat",
			Description: "print an inode as JSON",
			ArgsUsage:   "PATH",
			Action: withFileSystem(func(
				fs *assoofs.FileSystem,
				ctx *cli.Context,
			) error {
				h, err := fs.Walk(pathArg(ctx))
				if err != nil {
					return err
				}
				return printJSON(h)
			}),
		}, {
			Name:        "touch",
			Aliases:     []string{"create"},
			Description: "create an empty regular file",
			ArgsUsage:   "PATH",
			Flags:       []cli.Flag{modeFlag(0o644)},
			Action: withFileSystem(func(
				fs *assoofs.FileSystem,
				ctx *cli.Context,
			) error {
				dir, name, err := parent(fs, pathArg(ctx))
				if err != nil {
					return err
				}
				_, err = fs.Create(dir, name, Mode(ctx.Uint("mode")))
				return err
			}),
		}, {
			Name:        "mkdir",
			Description: "create an empty directory",
			ArgsUsage:   "PATH",
			Flags:       []cli.Flag{modeFlag(0o755)},
			Action: withFileSystem(func(
				fs *assoofs.FileSystem,
				ctx *cli.Context,
			) error {
				dir, name, err := parent(fs, pathArg(ctx))
				if err != nil {
					return err
				}
				_, err = fs.Mkdir(dir, name, Mode(ctx.Uint("mode")))
				return err
			}),
		}, {
			Name:        "rm",
			Aliases:     []string{"remove", "delete"},
			Description: "remove a file or an empty directory",
			ArgsUsage:   "PATH",
			Action: withFileSystem(func(
				fs *assoofs.FileSystem,
				ctx *cli.Context,
			) error {
				dir, name, err := parent(fs, pathArg(ctx))
				if err != nil {
					return err
				}
				return fs.Remove(dir, name)
			}),
		}, {
			Name:        "inodes",
			Description: "dump the superblock and the inode table as JSON",
			Action: withFileSystem(func(
				fs *assoofs.FileSystem,
				ctx *cli.Context,
			) error {
				infos, err := fs.Inodes()
				if err != nil {
					return err
				}
				sb := fs.Superblock()
				free := alloc.Bitfield(sb.FreeBlocks)
				return printJSON(struct {
					Superblock SuperblockInfo `json:"superblock"`
					FreeCount  int            `json:"freeCount"`
					FreeList   []Block        `json:"freeList"`
					Inodes     []InodeInfo    `json:"inodes"`
				}{
					Superblock: sb,
					FreeCount:  free.FreeCount(),
					FreeList:   freeList(free),
					Inodes:     infos,
				})
			}),
		}, {
			Name:        "serve",
			Description: "mount the device and serve the HTTP API",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "addr", Usage: "listen address"},
			},
			Action: func(ctx *cli.Context) error {
				c, logger, err := setup(ctx)
				if err != nil {
					return err
				}
				if ctx.IsSet("addr") {
					c.Addr = ctx.String("addr")
				}
				dev, err := c.OpenDevice(c.Device == DeviceMemory, MaxBlocks)
				if err != nil {
					return err
				}
				defer dev.Close()

				// a memory device starts out empty
				if c.Device == DeviceMemory {
					if err := assoofs.Format(
						dev,
						assoofs.FormatOptions{},
					); err != nil {
						return err
					}
				}

				registry := assoofs.NewRegistry(logger)
				defer registry.Close()
				if err := registry.Register(assoofs.DefaultType); err != nil {
					return err
				}
				m, err := registry.Mount(
					ctx.Context,
					assoofs.DefaultType.Name,
					dev.Source,
					dev,
				)
				if err != nil {
					return err
				}

				api := httpapi.API{Registry: registry}
				logger.Info("listening", "addr", c.Addr, "mount", m.ID)
				return http.ListenAndServe(c.Addr, api.Handler(os.Stderr))
			},
		}},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(1)
	}
}

// setup loads the configuration, applies global flag overrides, and builds
// the logger. The logger also rides along on `ctx.Context`.
func setup(ctx *cli.Context) (*Config, *slog.Logger, error) {
	c, err := LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if ctx.IsSet("device") {
		c.Device = ctx.String("device")
	}
	if ctx.IsSet("image") {
		c.Image = ctx.String("image")
	}
	if ctx.IsSet("offset") {
		c.Offset = ctx.Int64("offset")
	}
	if ctx.IsSet("cache-capacity") {
		capacity := ctx.Int("cache-capacity")
		c.CacheCapacity = &capacity
	}
	if ctx.IsSet("log-level") {
		c.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("log-format") {
		c.LogFormat = ctx.String("log-format")
	}
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := log.New(os.Stderr, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	ctx.Context = log.Context(ctx.Context, logger)
	return c, logger, nil
}

func withFileSystem(
	f func(*assoofs.FileSystem, *cli.Context) error,
) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		c, _, err := setup(ctx)
		if err != nil {
			return err
		}
		dev, err := c.OpenDevice(false, 0)
		if err != nil {
			return err
		}
		defer dev.Close()

		fs, err := assoofs.Mount(dev, assoofs.Options{
			Logger: log.FromContext(ctx.Context).With("source", dev.Source),
		})
		if err != nil {
			return err
		}
		defer fs.Unmount()
		return f(fs, ctx)
	}
}

func modeFlag(def uint) cli.Flag {
	return &cli.UintFlag{
		Name:  "mode",
		Usage: "permission bits",
		Value: def,
	}
}

func pathArg(ctx *cli.Context) string {
	if p := ctx.Args().First(); p != "" {
		return p
	}
	return "/"
}

// parent resolves the directory containing `p` and returns it along with the
// final path component. The final component must name an entry, so the
// root, "." and ".." are rejected.
func parent(
	fs *assoofs.FileSystem,
	p string,
) (*inode.Handle, string, error) {
	if !strings.HasPrefix(p, "/") {
		return nil, "", fmt.Errorf("resolving `%s`: %w", p, NotAbsolutePathErr)
	}
	trimmed := strings.TrimRight(p, "/")
	i := strings.LastIndex(trimmed, "/")
	name := trimmed[i+1:]
	if name == "" || name == "." || name == ".." {
		return nil, "", fmt.Errorf("resolving `%s`: %w", p, InvalidNameErr)
	}
	dir, err := fs.Walk(trimmed[:i+1])
	if err != nil {
		return nil, "", err
	}
	return dir, name, nil
}

// freeList returns the free blocks in ascending order.
func freeList(free alloc.Bitfield) []Block {
	blocks := make([]Block, 0, free.FreeCount())
	for b := Block(0); b < MaxBlocks; b++ {
		if free.IsFree(b) {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	if _, err := fmt.Printf("%s\n", data); err != nil {
		return fmt.Errorf("writing JSON to stdout: %w", err)
	}
	return nil
}
