package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"codebundle/constants/lipgloss"
	"codebundle/scanner"
	"codebundle/session"
	"codebundle/session/contracts"
	"codebundle/session/models"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// handleBundleCommand runs one acquisition session end to end: scan, resume
// or create session state, acquire content (interactive loop or auto pass),
// then assemble the bundle document.
func handleBundleCommand(rootDependencies *RootDependencies, cmd *cobra.Command, args []string) {

	// Create a context with cancel function
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := rootDependencies.Config
	logger := rootDependencies.Logger
	defer func() { _ = logger.Sync() }()

	reader := bufio.NewReader(os.Stdin)
	out := os.Stdout

	roots := scanner.NormalizeRoots(collectRoots(args, reader, out))
	if len(roots) == 0 {
		fmt.Println(lipgloss.Red.Render("No scan paths given."))
		return
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").WithDelay(100).WithRemoveWhenDone(true)

	spinnerScan, _ := spinner.Start("Scanning files...")

	// The generated outputs must never end up inside their own bundle.
	excludeFiles := []string{
		filepath.Base(cfg.Output.BundleFile),
		filepath.Base(cfg.Output.StateFile),
	}
	inventory, err := scanner.Scan(roots, cfg.Scan, excludeFiles)

	spinnerScan.Stop()
	fmt.Print("\r")

	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Scan failed: %v", err)))
		logger.Error("scan failed", zap.Error(err))
		return
	}
	if len(inventory.Files) == 0 {
		fmt.Println(lipgloss.Yellow.Render("No matching files found under the given paths."))
		return
	}
	logger.Info("scan complete",
		zap.Int("files", len(inventory.Files)),
		zap.String("root", inventory.Root),
		zap.Strings("scanRoots", inventory.ScanRoots))

	store := session.NewFileCheckpointStore(cfg.Output.StateFile, logger)
	if err := store.AcquireLock(); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
		return
	}
	defer store.ReleaseLock()

	flagMode := modeFromFlags(cmd)

	state := store.Load(inventory.ScanRoots, inventory.Root, inventory.Files)
	if state != nil {
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf(
			"Resuming previous session: %d/%d done.", state.DoneCount(), state.Len())))
		logger.Info("session resumed",
			zap.String("sessionID", state.SessionID),
			zap.Int("done", state.DoneCount()), zap.Int("total", state.Len()))
		// An explicit mode flag overrides the resumed mode.
		if flagMode != "" {
			state.Mode = flagMode
		}
	} else {
		mode := flagMode
		if mode == "" {
			mode = askMode(reader, out)
		}
		state = models.NewSessionState(inventory.ScanRoots, inventory.Root, inventory.Files, mode)
		logger.Info("session created",
			zap.String("sessionID", state.SessionID),
			zap.String("mode", string(mode)), zap.Int("total", state.Len()))
	}

	direct := &session.DirectReadSource{Root: inventory.Root, Guard: cfg.Guard}

	var skips models.SkipList
	autoPass := state.Mode == models.ModeAuto

	if autoPass {
		skips, err = runAutoPass(ctx, state, direct, store, out, cfg.Capture.ProgressStep, logger)
		if err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
			logger.Error("auto pass aborted", zap.Error(err))
			return
		}
	} else {
		manual := &session.ManualCaptureSource{
			In:           reader,
			Out:          out,
			EndMarker:    cfg.Capture.EndMarker,
			ProgressStep: cfg.Capture.ProgressStep,
		}
		controller := session.NewController(state, store, direct, manual, reader, out, logger)
		controller.BundleFile = cfg.Output.BundleFile
		controller.EndMarker = cfg.Capture.EndMarker
		controller.Theme = cfg.Theme

		if err := controller.Run(ctx); err != nil {
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("%v", err)))
			logger.Error("session aborted", zap.Error(err))
			return
		}
	}

	if err := finalizeBundle(ctx.Err(), autoPass, state, skips, cfg.Output.BundleFile, out, logger); err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error writing bundle: %v", err)))
		logger.Error("bundle write failed", zap.Error(err))
	}
}

// finalizeBundle renders and writes the bundle document for a finished
// run. An interrupted auto pass produces no document; every other
// termination, interrupt included, rebuilds the bundle from the
// checkpointed state so the document never lags behind saved progress.
func finalizeBundle(ctxErr error, autoPass bool, state *models.SessionState, skips models.SkipList, bundlePath string, out io.Writer, logger *zap.Logger) error {
	if ctxErr != nil && autoPass {
		return nil
	}

	assembler := session.NewAssembler()
	if err := session.WriteBundle(bundlePath, assembler.Build(state, skips)); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, lipgloss.Green.Render(fmt.Sprintf(
		"Bundle written: %s (%d/%d files)", bundlePath, state.DoneCount(), state.Len())))
	if !state.Complete() {
		fmt.Fprintln(out, lipgloss.Yellow.Render(fmt.Sprintf(
			"%d file(s) still pending; run again to resume.", state.Len()-state.DoneCount())))
	}
	logger.Info("bundle written",
		zap.String("path", bundlePath),
		zap.Int("done", state.DoneCount()), zap.Int("total", state.Len()),
		zap.Int("skipped", len(skips)))
	return nil
}

// collectRoots takes scan paths from the CLI args, or prompts for a
// semicolon-separated list. Surrounding quotes from shell copy-paste are
// stripped.
func collectRoots(args []string, reader *bufio.Reader, out io.Writer) []string {
	raw := args
	if len(raw) == 0 {
		fmt.Fprint(out, lipgloss.Bold.Render("Scan paths (separate multiple with ';') > "))
		line, _ := reader.ReadString('\n')
		// Bare Enter means the current directory; anything else, even
		// just separators, is parsed as an explicit path list.
		if strings.TrimSpace(line) == "" {
			return []string{"."}
		}
		raw = strings.Split(line, ";")
	}

	var roots []string
	for _, r := range raw {
		r = strings.Trim(strings.TrimSpace(r), `"'`)
		if r != "" {
			roots = append(roots, r)
		}
	}
	return roots
}

// modeFromFlags maps the mode flags to a mode; empty when none was given.
func modeFromFlags(cmd *cobra.Command) models.Mode {
	if ok, _ := cmd.Flags().GetBool("auto"); ok {
		return models.ModeAuto
	}
	if ok, _ := cmd.Flags().GetBool("paste"); ok {
		return models.ModePaste
	}
	if ok, _ := cmd.Flags().GetBool("hybrid"); ok {
		return models.ModeHybrid
	}
	return ""
}

func askMode(reader *bufio.Reader, out io.Writer) models.Mode {
	fmt.Fprintln(out, "Select mode:")
	fmt.Fprintln(out, "  1) HYBRID - auto-read first, offer paste on failure")
	fmt.Fprintln(out, "  2) PASTE  - paste every file by hand")
	fmt.Fprintln(out, "  3) AUTO   - read everything from disk, no prompts")
	fmt.Fprint(out, lipgloss.Bold.Render("Choice (default 1) > "))

	line, _ := reader.ReadString('\n')
	switch strings.TrimSpace(line) {
	case "2":
		return models.ModePaste
	case "3":
		return models.ModeAuto
	default:
		return models.ModeHybrid
	}
}

// runAutoPass acquires every pending entry by direct read without
// prompting. Unreadable entries are recorded in the returned skip list and
// stay pending. State is checkpointed once at the end of the pass.
func runAutoPass(ctx context.Context, state *models.SessionState, direct contracts.IContentSource, store *session.FileCheckpointStore, out io.Writer, progressStep int, logger *zap.Logger) (models.SkipList, error) {
	skips := make(models.SkipList)
	total := state.Len()
	processed := 0

	for i, path := range state.Files {
		if ctx.Err() != nil {
			fmt.Fprintln(out, lipgloss.Yellow.Render("Interrupt received. Saving progress."))
			break
		}
		if state.Done[i] {
			continue
		}

		content, reason, ok := direct.Acquire(path)
		if ok {
			state.MarkAcquired(i, content)
		} else {
			skips[path] = reason
			logger.Info("auto pass skip", zap.String("path", path), zap.String("reason", reason))
		}

		processed++
		if progressStep > 0 && processed%progressStep == 0 {
			fmt.Fprintln(out, lipgloss.Dim.Render(fmt.Sprintf("Processed %d/%d...", processed, total)))
		}
	}

	if err := store.Save(state); err != nil {
		return nil, fmt.Errorf("persist session state: %w", err)
	}

	fmt.Fprintln(out, lipgloss.Green.Render(fmt.Sprintf(
		"Auto pass finished: %d/%d read, %d skipped.", state.DoneCount(), total, len(skips))))
	return skips, nil
}
