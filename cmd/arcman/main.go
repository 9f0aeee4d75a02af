// Package main is the arcman command line tool.
//
// arcman inspects and edits archive-backed resource stores: it lists
// resources, prints raw contents, pretty-prints JSON data maps, and reads
// or writes properties inside an archive without the caller unzipping
// anything by hand.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/DrPlantabyte/ArchiveResourceManager/archive"
	"github.com/DrPlantabyte/ArchiveResourceManager/datamap"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

const usage = `usage: arcman [flags] <command> <archive> [args]

commands:
  create <archive>                         create a new empty archive
  list   <archive> [prefix]                list resources
  cat    <archive> <locator>               print raw resource contents
  dump   <archive> <locator>               pretty-print a JSON data map
  get    <archive> <locator> <key>         print a property value
  set    <archive> <locator> <key> <val>   set a property and rewrite the archive
  delete <archive> <locator>               delete a resource and rewrite the archive
`

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "arcman: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	out := flag.String("o", "", "Output archive for mutating commands (default: rewrite in place)")
	dirs := flag.Bool("dirs", false, "Include directories in list output")
	indent := flag.String("indent", "  ", "Indent unit for dump output")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", *logLevel, err)
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:   level,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		return fmt.Errorf("missing command or archive")
	}
	command, archivePath, rest := args[0], args[1], args[2:]

	if command == "create" {
		return createArchive(archivePath, logger)
	}

	s, err := archive.Open(archivePath, archive.WithLogger(logger))
	if err != nil {
		return err
	}
	defer s.Close()

	dest := *out
	if dest == "" {
		dest = archivePath
	}

	switch command {
	case "list":
		prefix := ""
		if len(rest) > 0 {
			prefix = rest[0]
		}
		locators, err := s.List(prefix, *dirs, true)
		if err != nil {
			return err
		}
		for _, loc := range locators {
			fmt.Println(loc)
		}
		return nil

	case "cat":
		if len(rest) != 1 {
			return fmt.Errorf("cat needs a locator")
		}
		data, err := s.ReadBytes(rest[0])
		if err != nil {
			return err
		}
		if data == nil {
			return fmt.Errorf("no resource at %q", rest[0])
		}
		_, err = os.Stdout.Write(data)
		return err

	case "dump":
		if len(rest) != 1 {
			return fmt.Errorf("dump needs a locator")
		}
		m, err := s.ReadDataMap(rest[0])
		if err != nil {
			return err
		}
		compact, err := datamap.Marshal(m)
		if err != nil {
			return err
		}
		fmt.Println(datamap.Indent(string(compact), *indent))
		return nil

	case "get":
		if len(rest) != 2 {
			return fmt.Errorf("get needs a locator and a key")
		}
		ok, err := s.HasProperty(rest[0], rest[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no property %q in %q", rest[1], rest[0])
		}
		v, err := s.Property(rest[0], rest[1], "")
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil

	case "set":
		if len(rest) != 3 {
			return fmt.Errorf("set needs a locator, a key and a value")
		}
		if err := s.SetProperty(rest[0], rest[1], rest[2]); err != nil {
			return err
		}
		return s.Save(dest)

	case "delete":
		if len(rest) != 1 {
			return fmt.Errorf("delete needs a locator")
		}
		existed, err := s.Delete(rest[0])
		if err != nil {
			return err
		}
		if !existed {
			logger.Warn("no resource at locator", "locator", rest[0])
			return nil
		}
		return s.Save(dest)

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func createArchive(archivePath string, logger *slog.Logger) error {
	if _, err := os.Stat(archivePath); err == nil {
		return fmt.Errorf("%q already exists", archivePath)
	}
	s, err := archive.New(archive.WithLogger(logger))
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Save(archivePath)
}
