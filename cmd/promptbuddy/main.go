package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ankitjc/prompt-polish/internal/client"
	"github.com/ankitjc/prompt-polish/internal/domain"
	"github.com/ankitjc/prompt-polish/internal/infra"
	"github.com/ankitjc/prompt-polish/internal/infra/google"
	"github.com/ankitjc/prompt-polish/internal/kv"
	"github.com/ankitjc/prompt-polish/internal/session"
	"github.com/ankitjc/prompt-polish/internal/speech"
	"github.com/ankitjc/prompt-polish/internal/usage"
)

const (
	version = "0.1.0"
	appName = "promptbuddy"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// cli carries what every command needs once configuration is loaded.
type cli struct {
	cfg    *client.Config
	app    *client.App
	store  kv.Store
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet(appName, flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", client.DefaultConfigPath(), "path to config.yaml")
	verbose := global.Bool("v", false, "log debug output to stderr")
	global.Usage = func() { printUsage(stderr) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return 2
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "version":
		fmt.Fprintf(stdout, "%s v%s\n", appName, version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	case "options":
		printOptions(stdout)
		return 0
	case "login", "logout", "whoami", "quota", "generate", "listen", "usage":
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n", cmd)
		printUsage(stderr)
		return 2
	}

	cfg, err := client.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	level := cfg.Log.Level
	if *verbose {
		level = "debug"
	}
	logger := infra.NewCLILogger(stderr, level)

	store, err := kv.OpenSQLite(cfg.StorePath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer store.Close()

	c := &cli{
		cfg: cfg,
		app: &client.App{
			Sessions:  session.NewStore(store),
			Gate:      usage.NewGate(store),
			Generator: client.NewFacadeClient(cfg.ServerURL, cfg.RequestTimeout),
			Logger:    logger,
		},
		store:  store,
		stdout: stdout,
		stderr: stderr,
	}
	if cfg.GoogleClientID != "" {
		c.app.Verifier = google.NewVerifier(google.DefaultIssuer, cfg.GoogleClientID)
	}

	switch cmd {
	case "login":
		err = c.login(ctx, cmdArgs)
	case "logout":
		err = c.logout(ctx)
	case "whoami":
		err = c.whoami(ctx)
	case "quota":
		err = c.quota(ctx)
	case "listen":
		err = c.listen(ctx, cmdArgs)
	case "generate":
		err = c.generate(ctx, cmdArgs)
	case "usage":
		err = c.usage(ctx, cmdArgs)
	}
	if tr, ok := c.app.Transcriber.(*speech.GoogleTranscriber); ok {
		_ = tr.Close()
	}
	return c.exitCode(err)
}

func (c *cli) exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(c.stderr, err)
		return 2
	case client.IsRefusal(err):
		fmt.Fprintln(c.stderr, refusalMessage(err))
	case errors.Is(err, speech.ErrNotConfigured):
		fmt.Fprintln(c.stderr, "Speech capture is disabled. Pass keywords with -k instead.")
	case errors.Is(err, errGenerationFailed):
	default:
		fmt.Fprintln(c.stderr, err)
	}
	return 1
}

func refusalMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotLoggedIn):
		return "Not logged in. Run `promptbuddy login <id-token>` first."
	case errors.Is(err, domain.ErrQuotaExceeded):
		return fmt.Sprintf("Daily limit of %d generations reached. Try again tomorrow.", usage.DailyCeiling)
	default:
		return "Please enter some keywords."
	}
}

var (
	errUsage            = errors.New("usage")
	errGenerationFailed = errors.New("generation failed")
)

func (c *cli) login(ctx context.Context, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("%w: promptbuddy login <id-token>", errUsage)
	}
	id, err := c.app.Login(ctx, args[0])
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(c.stdout, "Logged in as %s (%s)\n", id.DisplayName(), id.Email)
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	if err := c.app.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "Logged out")
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	id, err := c.app.Whoami(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s <%s>\n", id.DisplayName(), id.Email)
	if since, ok, err := c.app.Sessions.Since(ctx); err == nil && ok && !since.IsZero() {
		fmt.Fprintf(c.stdout, "logged in since %s\n", since.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func (c *cli) quota(ctx context.Context) error {
	snap, err := c.app.Quota(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s: used %d of %d, %d remaining\n", snap.Day, snap.Used, snap.Ceiling, snap.Remaining)
	return nil
}

func (c *cli) listen(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("listen", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	audioPath := fs.String("audio", "", "16-bit mono PCM WAV (or raw LINEAR16) file to transcribe")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *audioPath == "" {
		return fmt.Errorf("%w: promptbuddy listen -audio <file>", errUsage)
	}
	if err := c.attachTranscriber(ctx); err != nil {
		return err
	}
	audio, err := os.ReadFile(*audioPath)
	if err != nil {
		return fmt.Errorf("reading audio: %w", err)
	}
	text, err := c.app.Listen(ctx, audio)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, text)
	return nil
}

func (c *cli) generate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	keywords := fs.String("k", "", "keywords to turn into a sentence")
	tone := fs.String("tone", c.cfg.Tone, "casual, formal, friendly or funny")
	simplicity := fs.String("simplicity", c.cfg.Simplicity, "simple, intermediate or advanced")
	audioPath := fs.String("audio", "", "take keywords from this audio file instead of -k")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keywords == "" && fs.NArg() > 0 {
		*keywords = strings.Join(fs.Args(), " ")
	}

	var (
		res domain.GenerationResult
		err error
	)
	if *audioPath != "" {
		if err := c.attachTranscriber(ctx); err != nil {
			return err
		}
		audio, readErr := os.ReadFile(*audioPath)
		if readErr != nil {
			return fmt.Errorf("reading audio: %w", readErr)
		}
		var heard string
		heard, res, err = c.app.GenerateFromAudio(ctx, audio, *tone, *simplicity)
		if heard != "" {
			fmt.Fprintf(c.stderr, "heard: %s\n", heard)
		}
	} else {
		res, err = c.app.Generate(ctx, *keywords, *tone, *simplicity)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, res.Sentence)
	if res.Failed {
		return errGenerationFailed
	}
	return nil
}

func (c *cli) usage(ctx context.Context, args []string) error {
	if len(args) != 1 || args[0] != "prune" {
		return fmt.Errorf("%w: promptbuddy usage prune", errUsage)
	}
	removed, err := c.app.Gate.Prune(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "removed %d stale usage counters\n", removed)
	return nil
}

// attachTranscriber connects to Speech-to-Text only for commands that need it.
func (c *cli) attachTranscriber(ctx context.Context) error {
	if c.app.Transcriber != nil {
		return nil
	}
	if c.cfg.Speech.Disabled {
		c.app.Transcriber = speech.NoopTranscriber{}
		return nil
	}
	tr, err := speech.NewGoogleTranscriber(ctx, speech.GoogleOptions{
		Language:        c.cfg.Speech.Language,
		SampleRate:      c.cfg.Speech.SampleRate,
		CredentialsFile: c.cfg.Speech.CredentialsFile,
	})
	if err != nil {
		return err
	}
	c.app.Transcriber = tr
	return nil
}

func printOptions(w io.Writer) {
	title := cases.Title(language.English)
	fmt.Fprintln(w, "Tones:")
	for _, opt := range domain.ToneOptions {
		fmt.Fprintf(w, "  %-14s %s %s\n", opt.Value, opt.Emoji, title.String(opt.Value))
	}
	fmt.Fprintln(w, "Simplicity:")
	for _, opt := range domain.SimplicityOptions {
		fmt.Fprintf(w, "  %-14s %s %s\n", opt.Value, opt.Emoji, title.String(opt.Value))
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `%s v%s: keywords in, one sentence out

Usage:
  %s [-config path] [-v] <command>

Commands:
  login <id-token>     Store the identity from a Google ID token
  logout               Forget the stored identity
  whoami               Show the logged-in identity
  options              List tones and simplicity levels
  listen -audio FILE   Transcribe an audio file into keywords
  generate -k WORDS    Generate a sentence [-tone T] [-simplicity S] [-audio FILE]
  quota                Show today's usage
  usage prune          Delete usage counters from previous days
  version              Print version

Environment variables:
  PROMPTBUDDY_CONFIG      Config file (default: ~/.promptbuddy/config.yaml)
  PROMPTBUDDY_SERVER_URL  API base URL (default: http://localhost:3001)
  PROMPTBUDDY_STORE       Local state file (default: ~/.promptbuddy/state.db)
  GOOGLE_CLIENT_ID        Verify login tokens against this OAuth client

`, appName, version, appName)
}
