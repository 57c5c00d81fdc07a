// Command ichatconv reads a legacy iChat bplist chat-log and either
// converts it to TXT/RTF or lets the user browse it interactively, in the
// manner of the "Convert ichat Files" C program it was ported from.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	flags "github.com/jessevdk/go-flags"
	"github.com/kr/pretty"

	"github.com/amethystsoftware/ichatconv/internal/bplist"
	"github.com/amethystsoftware/ichatconv/internal/config"
	"github.com/amethystsoftware/ichatconv/internal/ichat"
	"github.com/amethystsoftware/ichatconv/internal/render"
	"github.com/amethystsoftware/ichatconv/internal/session"
)

type cliOptions struct {
	Mode         string `long:"mode" description:"convert or browse" required:"true"`
	Input        string `long:"input" description:"path to the bplist/iChat archive" required:"true"`
	Format       string `long:"format" description:"TXT or RTF (convert mode only)"`
	FollowLinks  bool   `long:"follow-links" description:"in browse mode, dereference UIDs when printing raw objects"`
	Overwrite    bool   `long:"overwrite" description:"overwrite an existing output file"`
	RealNames    bool   `long:"real-names" description:"display participant names instead of account ids"`
	TrimEmailIDs bool   `long:"trim-email-ids" description:"truncate account ids at the first '@'"`
	Config       string `long:"config" description:"optional YAML session config"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var opts cliOptions
	if _, err := flags.Parse(&opts); err != nil {
		return 1
	}

	if err := validateArgs(&opts); err != nil {
		fmt.Fprintln(os.Stderr, "ichatconv:", err)
		return 1
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ichatconv: loading config:", err)
		return 1
	}

	data, err := os.ReadFile(opts.Input)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ichatconv: reading input:", err)
		return 1
	}
	if int64(len(data)) > cfg.MaxInputBytes {
		fmt.Fprintf(os.Stderr, "ichatconv: input is %d bytes, exceeds the %d byte ceiling\n", len(data), cfg.MaxInputBytes)
		return 1
	}

	dec, err := bplist.NewDecoder(data, int(cfg.MaxInputBytes))
	if err != nil {
		fmt.Fprintln(os.Stderr, "ichatconv: decoding bplist:", err)
		return 1
	}

	bind := &session.Binding{
		Decoder:      dec,
		FollowLinks:  opts.FollowLinks,
		Overwrite:    opts.Overwrite,
		RealNames:    opts.RealNames,
		TrimEmailIDs: opts.TrimEmailIDs,
	}
	if arc, err := ichat.Open(dec, cfg, opts.TrimEmailIDs); err == nil {
		bind.Archive = arc
	}

	switch opts.Mode {
	case "convert":
		return runConvert(bind, opts)
	case "browse":
		return runBrowse(bind)
	}
	return 1
}

func validateArgs(opts *cliOptions) error {
	switch opts.Mode {
	case "convert":
		if opts.Format == "" {
			return fmt.Errorf("--format is required when --mode=convert")
		}
		if opts.Format != "TXT" && opts.Format != "RTF" {
			return fmt.Errorf("--format must be TXT or RTF, got %q", opts.Format)
		}
	case "browse":
		if opts.Format != "" {
			return fmt.Errorf("--format is not allowed when --mode=browse")
		}
	default:
		return fmt.Errorf("--mode must be convert or browse, got %q", opts.Mode)
	}
	return nil
}

func runConvert(bind *session.Binding, opts cliOptions) int {
	if bind.Archive == nil {
		fmt.Fprintln(os.Stderr, "ichatconv: input is not an iChat archive")
		return 1
	}

	outPath, err := outputPath(opts.Input, opts.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ichatconv:", err)
		return 1
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !bind.Overwrite {
		flag |= os.O_EXCL
	}
	f, err := os.OpenFile(outPath, flag, 0o644)
	if err != nil {
		if os.IsExist(err) {
			// Intentional no-op: matches the original program's behavior
			// of skipping an existing output file without --overwrite
			// (with an informational message) rather than treating it as
			// a fatal error.
			fmt.Printf("ichatconv: %s already exists, skipping\n", outPath)
			return 0
		}
		fmt.Fprintln(os.Stderr, "ichatconv: opening output:", err)
		return 1
	}
	defer f.Close()

	opt := render.Options{RealNames: bind.RealNames, TrimEmailIDs: bind.TrimEmailIDs}
	switch opts.Format {
	case "TXT":
		err = render.RenderTXT(f, bind.Archive, opt)
	case "RTF":
		err = render.RenderRTF(f, bind.Archive, opt)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "ichatconv: rendering:", err)
		return 1
	}
	return 0
}

// outputPath derives the output file name by replacing the final
// dot-suffix of input with ".txt" or ".rtf".
func outputPath(input, format string) (string, error) {
	dot := strings.LastIndexByte(input, '.')
	if dot < 0 {
		return "", fmt.Errorf("input path %q has no extension to replace", input)
	}
	ext := ".txt"
	if format == "RTF" {
		ext = ".rtf"
	}
	return input[:dot] + ext, nil
}

func runBrowse(bind *session.Binding) int {
	scanner := bufio.NewScanner(os.Stdin)
	if bind.Archive != nil {
		fmt.Println("This file is an iChat archive. Browse as (1) iChat messages or (2) raw bplist?")
		if !scanner.Scan() {
			return 0
		}
		if strings.TrimSpace(scanner.Text()) == "1" {
			browseIChat(bind, scanner)
			return 0
		}
	}
	browseBplist(bind, scanner)
	return 0
}

func browseIChat(bind *session.Binding, scanner *bufio.Scanner) {
	fmt.Println("Browse as (1) smart messages or (2) full message records?")
	smart := true
	if scanner.Scan() && strings.TrimSpace(scanner.Text()) == "2" {
		smart = false
	}

	unicodePlaceholder := os.Getenv("TERM") == ""

	for i := 0; i < bind.Archive.NumMessages(); i++ {
		msg, err := bind.Archive.Message(i)
		if err != nil {
			fmt.Printf("#%d: error: %v\n", i, err)
			continue
		}
		if msg.Hiccup {
			fmt.Printf("#%d: [skipped: hiccup]\n", i)
			continue
		}
		if smart {
			printSmartMessage(i, msg, unicodePlaceholder)
		} else {
			pretty.Println(msg)
		}
	}
}

func printSmartMessage(i int, msg ichat.Message, unicodePlaceholder bool) {
	text := msg.Text
	if msg.IsUnicodeText {
		if unicodePlaceholder {
			text = "<unicode>"
		} else {
			var b strings.Builder
			for _, u := range msg.UnicodeText {
				enc, err := ichat.EncodeUTF16BEUnit(u)
				if err == nil {
					b.Write(enc)
				}
			}
			text = b.String()
		}
	}
	if msg.FileTransferCount > 0 {
		text = strings.Join(msg.FileNames, ", ")
	}
	fmt.Printf("#%d [%s] sender=%q fromClient=%v files=%d: %s\n", i, msg.TimeShort, msg.SenderID, msg.FromClient, msg.FileTransferCount, text)
}

func browseBplist(bind *session.Binding, scanner *bufio.Scanner) {
	fmt.Printf("%d objects, root index %d. Enter an index to print, or blank to quit.\n", bind.Decoder.NumObjects(), bind.Decoder.RootIndex())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return
		}
		var idx int
		if _, err := fmt.Sscanf(line, "%d", &idx); err != nil {
			fmt.Println("not a number")
			continue
		}
		obj, err := bind.Decoder.DecodeHinted(idx)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		if bind.FollowLinks && obj.Tag == bplist.TagUID {
			target, err := bind.Decoder.FollowUID(idx)
			if err == nil {
				obj, err = bind.Decoder.DecodeHinted(target)
			}
			if err != nil {
				fmt.Println("error following UID:", err)
				continue
			}
		}
		if obj.Tag == bplist.TagInt && obj.IsBaseWritingDirection {
			fmt.Println("signed:", bplist.SignExtend(obj.Int, obj.IntWidth))
			continue
		}
		pretty.Println(obj)
	}
}
