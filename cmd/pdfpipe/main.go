// pdfpipe rewrites PDF files in a single forward pass.
//
// Subcommands:
//
//	info      print the document's version, index and metadata
//	copy      rewrite a document without changes
//	strip     remove objects of the given types
//	set-info  set entries of the document information dictionary
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/tsawler/pdfpipe"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// common holds the flags every subcommand accepts.
type common struct {
	configPath       string
	xrefFormat       string
	compressionLevel int
	bufferSize       int
	logLevel         string
}

func (c *common) addFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.configPath, "config", "", "YAML configuration file")
	flagSet.StringVar(&c.xrefFormat, "xref-format", "auto", "output index format: auto, table or stream")
	flagSet.IntVar(&c.compressionLevel, "compression-level", -1, "Flate level for re-encoded streams (-1 for the default)")
	flagSet.IntVar(&c.bufferSize, "buffer-size", 32*1024, "input read chunk in bytes")
	flagSet.StringVar(&c.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flagSet.BoolP("help", "h", false, "show help")
}

// config loads the configuration file, if any, and applies the flags that
// were set explicitly.
func (c *common) config(flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Default()
	if c.configPath != "" {
		loaded, err := LoadFile(c.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flagSet.Changed("xref-format") {
		cfg.XRefFormat = c.xrefFormat
	}
	if flagSet.Changed("compression-level") {
		cfg.CompressionLevel = c.compressionLevel
	}
	if flagSet.Changed("buffer-size") {
		cfg.BufferSize = c.bufferSize
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// pipeline applies cfg to a pipeline over the named input.
func pipeline(cfg *Config, input string, stderr io.Writer) *pdfpipe.Pipeline {
	level, _ := cfg.level()
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return pdfpipe.Open(input).
		Logger(logger).
		XRefFormat(cfg.format()).
		CompressionLevel(cfg.CompressionLevel).
		BufferSize(cfg.BufferSize)
}

type command struct {
	name    string
	usage   string
	summary string
	args    int
	flags   func(*pflag.FlagSet)
	run     func(p *pdfpipe.Pipeline, args []string, stdout io.Writer) error
}

func commands() []*command {
	var types []string
	var entries []string
	return []*command{
		{
			name:    "info",
			usage:   "info [flags] <input.pdf>",
			summary: "print the document's version, index and metadata",
			args:    1,
			run: func(p *pdfpipe.Pipeline, _ []string, stdout io.Writer) error {
				info, err := p.Inspect()
				if err != nil {
					return err
				}
				printInfo(stdout, info)
				return nil
			},
		},
		{
			name:    "copy",
			usage:   "copy [flags] <input.pdf> <output.pdf>",
			summary: "rewrite a document without changes",
			args:    2,
			run: func(p *pdfpipe.Pipeline, args []string, stdout io.Writer) error {
				return write(p, args[1], stdout)
			},
		},
		{
			name:    "strip",
			usage:   "strip --type <Type> [flags] <input.pdf> <output.pdf>",
			summary: "remove objects of the given types",
			args:    2,
			flags: func(flagSet *pflag.FlagSet) {
				flagSet.StringSliceVar(&types, "type", nil, "object /Type to remove (repeatable, comma separated)")
			},
			run: func(p *pdfpipe.Pipeline, args []string, stdout io.Writer) error {
				if len(types) == 0 {
					return fmt.Errorf("strip: at least one --type is required")
				}
				return write(p.Strip(types...), args[1], stdout)
			},
		},
		{
			name:    "set-info",
			usage:   "set-info --set Key=Value [flags] <input.pdf> <output.pdf>",
			summary: "set entries of the document information dictionary",
			args:    2,
			flags: func(flagSet *pflag.FlagSet) {
				flagSet.StringArrayVar(&entries, "set", nil, "Key=Value entry to set (repeatable)")
			},
			run: func(p *pdfpipe.Pipeline, args []string, stdout io.Writer) error {
				if len(entries) == 0 {
					return fmt.Errorf("set-info: at least one --set is required")
				}
				for _, e := range entries {
					key, value, ok := strings.Cut(e, "=")
					if !ok || key == "" {
						return fmt.Errorf("set-info: %q is not Key=Value", e)
					}
					p = p.SetInfo(key, value)
				}
				return write(p, args[1], stdout)
			},
		},
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmds := commands()
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr, cmds)
		return nil
	}

	var cmd *command
	for _, c := range cmds {
		if c.name == args[0] {
			cmd = c
		}
	}
	if cmd == nil {
		printUsage(stderr, cmds)
		return fmt.Errorf("unknown command %q", args[0])
	}

	var flags common
	flagSet := pflag.NewFlagSet("pdfpipe "+cmd.name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flags.addFlags(flagSet)
	if cmd.flags != nil {
		cmd.flags(flagSet)
	}
	if err := flagSet.Parse(args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintf(stderr, "Usage:\n  pdfpipe %s\n\nFlags:\n", cmd.usage)
		flagSet.PrintDefaults()
		return nil
	}

	rest := flagSet.Args()
	if len(rest) != cmd.args {
		return fmt.Errorf("usage: pdfpipe %s", cmd.usage)
	}
	cfg, err := flags.config(flagSet)
	if err != nil {
		return err
	}
	return cmd.run(pipeline(cfg, rest[0], stderr), rest, stdout)
}

func write(p *pdfpipe.Pipeline, output string, stdout io.Writer) error {
	res, warnings, err := p.WriteFile(output)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s: %d objects, %d bytes\n", output, res.Objects, res.Bytes)
	if len(warnings) > 0 {
		fmt.Fprintf(stdout, "%d warnings\n", len(warnings))
	}
	return nil
}

func printInfo(w io.Writer, info *pdfpipe.Info) {
	fmt.Fprintf(w, "Version:     %s\n", info.Version)
	fmt.Fprintf(w, "Pages:       %d\n", info.Pages)
	fmt.Fprintf(w, "Objects:     %d\n", info.Objects)
	fmt.Fprintf(w, "Index:       %s, %d section(s)\n", info.XRefFormat, info.Sections)
	fmt.Fprintf(w, "Linearized:  %t\n", info.Linearized)
	fmt.Fprintf(w, "Encrypted:   %t\n", info.Encrypted)
	for _, k := range info.MetadataKeys() {
		fmt.Fprintf(w, "%-12s %s\n", k+":", info.Metadata[k])
	}
}

func printUsage(w io.Writer, cmds []*command) {
	fmt.Fprintf(w, "pdfpipe rewrites PDF files in a single forward pass.\n\nUsage:\n  pdfpipe <command> [flags] <args>\n\nCommands:\n")
	for _, c := range cmds {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun \"pdfpipe <command> --help\" for the flags of a command.\n")
}
