package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"codebundle/constants/lipgloss"
	"codebundle/session/contracts"
	"codebundle/session/models"
	"codebundle/utils"

	"go.uber.org/zap"
)

// fallbackDecision is what the controller does after a failed direct read.
type fallbackDecision int

const (
	fallbackLeavePending fallbackDecision = iota
	fallbackOfferManual
)

// fallbackFor is the mode-by-failure decision table. Paste mode never
// attempts a direct read through default resolution, so a failure there
// (forced via 'a N') behaves like auto: the entry stays pending.
func fallbackFor(m models.Mode) fallbackDecision {
	if m == models.ModeHybrid {
		return fallbackOfferManual
	}
	return fallbackLeavePending
}

// Controller drives the interactive acquisition loop: it selects entries,
// resolves the acquisition method per step, applies the fallback table,
// mutates session state, and checkpoints after every mutation.
type Controller struct {
	State  *models.SessionState
	Store  contracts.ICheckpointStore
	Direct contracts.IContentSource
	Manual contracts.IContentSource

	In     *bufio.Reader
	Out    io.Writer
	Logger *zap.Logger

	// Display-only context for the status screen.
	BundleFile string
	EndMarker  string
	Theme      string

	// override is the armed one-shot method; it supersedes the active mode
	// for exactly the next selected entry.
	override models.Method
}

// NewController wires a controller over the given state and collaborators.
func NewController(state *models.SessionState, store contracts.ICheckpointStore, direct, manual contracts.IContentSource, in *bufio.Reader, out io.Writer, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		State:  state,
		Store:  store,
		Direct: direct,
		Manual: manual,
		In:     in,
		Out:    out,
		Logger: logger,
	}
}

// Run executes the command loop until the operator quits or an interrupt
// arrives. An interrupt is a checkpoint-and-stop request, not a crash; it
// is honored between commands only. The returned error is fatal (a failed
// checkpoint write) — every other condition stays inside the loop.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return c.interrupted()
		default:
		}

		c.renderScreen()

		cmd, err := utils.ReadCommandWithContext(ctx, c.In, c.Out)
		if err != nil {
			return c.interrupted()
		}

		terminated, err := c.HandleCommand(cmd)
		if err != nil {
			return err
		}
		if terminated {
			return nil
		}
	}
}

// interrupted persists best-effort and ends the run.
func (c *Controller) interrupted() error {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, lipgloss.Yellow.Render("Interrupt received. Saving state and exiting."))
	if err := c.Store.Save(c.State); err != nil {
		c.Logger.Error("checkpoint on interrupt failed", zap.Error(err))
		fmt.Fprintln(c.Out, lipgloss.Red.Render(fmt.Sprintf("Warning: could not save state: %v", err)))
	}
	return nil
}

// HandleCommand processes one operator command. It returns true when the
// session should terminate; a non-nil error means a checkpoint write
// failed and the session cannot safely continue.
func (c *Controller) HandleCommand(cmd string) (bool, error) {
	switch strings.ToLower(cmd) {
	case "q":
		return c.handleQuit()

	case "r":
		c.State.TogglePendingOnly()
		if err := c.Store.Save(c.State); err != nil {
			return false, fmt.Errorf("persist session state: %w", err)
		}
		return false, nil

	case "m":
		c.State.CycleMode()
		if err := c.Store.Save(c.State); err != nil {
			return false, fmt.Errorf("persist session state: %w", err)
		}
		return false, nil

	case "a":
		c.override = models.MethodDirect
		return false, nil

	case "p":
		c.override = models.MethodManual
		return false, nil
	}

	// Remaining forms: "", "N", "a N", "p N", "v N".
	forced := models.MethodDefault
	idx := models.NoCursor

	fields := strings.Fields(cmd)
	switch {
	case cmd == "":
		idx = c.State.NextFromCursor()
		if idx == models.NoCursor {
			fmt.Fprintln(c.Out)
			fmt.Fprintln(c.Out, lipgloss.Green.Render("All files are done. If you're finished, press q to quit."))
			return false, nil
		}

	case len(fields) == 2 && isDigits(fields[1]) && (strings.EqualFold(fields[0], "a") || strings.EqualFold(fields[0], "p") || strings.EqualFold(fields[0], "v")):
		idx, _ = strconv.Atoi(fields[1])
		switch strings.ToLower(fields[0]) {
		case "a":
			forced = models.MethodDirect
		case "p":
			forced = models.MethodManual
		case "v":
			c.previewEntry(idx)
			return false, nil
		}

	case isDigits(cmd):
		idx, _ = strconv.Atoi(cmd)

	default:
		fmt.Fprintln(c.Out)
		fmt.Fprintln(c.Out, lipgloss.Red.Render("Valid inputs: Enter / number / a / p / v / m / r / q only."))
		return false, nil
	}

	if idx < 0 || idx >= c.State.Len() {
		fmt.Fprintln(c.Out)
		fmt.Fprintln(c.Out, lipgloss.Red.Render("Index out of range."))
		return false, nil
	}

	return false, c.acquireEntry(idx, forced)
}

// acquireEntry runs one acquisition step for the entry at idx. forced is
// the method from an 'a N'/'p N' command, or MethodDefault to resolve from
// the one-shot override and the active mode.
func (c *Controller) acquireEntry(idx int, forced models.Method) error {
	path := c.State.Files[idx]

	if c.State.Done[idx] {
		ok := utils.AskYesNo(
			lipgloss.Yellow.Render(fmt.Sprintf("\n[%s] is already done. Overwrite it? (y/N) > ", path)),
			c.In, c.Out)
		if !ok {
			fmt.Fprintln(c.Out, lipgloss.Dim.Render("Cancelled."))
			return nil
		}
	}

	method := forced
	if method == models.MethodDefault {
		if c.override != models.MethodDefault {
			method = c.override
		} else if c.State.Mode == models.ModePaste {
			method = models.MethodManual
		} else {
			method = models.MethodDirect
		}
	}
	// The one-shot override is spent by any selection, forced or not.
	c.override = models.MethodDefault

	var content string
	var how string

	switch method {
	case models.MethodManual:
		content = c.captureManually(idx, path)
		how = "PASTE capture"

	default:
		direct, reason, ok := c.Direct.Acquire(path)
		if !ok {
			fmt.Fprintln(c.Out)
			fmt.Fprintln(c.Out, lipgloss.Yellow.Render(fmt.Sprintf("[%s] AUTO-READ failed/skipped: %s", path, reason)))
			c.Logger.Info("direct read failed",
				zap.String("path", path), zap.String("reason", reason), zap.String("mode", string(c.State.Mode)))

			switch fallbackFor(c.State.Mode) {
			case fallbackOfferManual:
				if utils.AskYesNo(lipgloss.Cyan.Render("Switch to PASTE for this file? (y/N) > "), c.In, c.Out) {
					content = c.captureManually(idx, path)
					how = "PASTE capture"
					break
				}
				fmt.Fprintln(c.Out, lipgloss.Dim.Render("Skipped. Move on to something else."))
				return nil
			default:
				return nil
			}

		} else {
			content = direct
			how = "AUTO-READ"
			c.Logger.Debug("direct read ok", zap.String("path", path), zap.String("reason", reason))
		}
	}

	c.State.MarkAcquired(idx, content)
	if err := c.Store.Save(c.State); err != nil {
		return fmt.Errorf("persist session state: %w", err)
	}

	fmt.Fprintln(c.Out, lipgloss.Green.Render(fmt.Sprintf("\n[%s] %s complete.", path, how)))
	fmt.Fprintln(c.Out, lipgloss.Dim.Render("(autosaved)"))
	c.Logger.Info("entry acquired",
		zap.String("path", path), zap.Int("index", idx),
		zap.Int("done", c.State.DoneCount()), zap.Int("total", c.State.Len()))
	return nil
}

func (c *Controller) captureManually(idx int, path string) string {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, lipgloss.Bold.Render(fmt.Sprintf("[%d/%d] %s", idx+1, c.State.Len(), path)))
	content, reason, _ := c.Manual.Acquire(path)
	c.Logger.Info("manual capture finished", zap.String("path", path), zap.String("reason", reason))
	return content
}

func (c *Controller) handleQuit() (bool, error) {
	pending := c.State.Pending()
	if len(pending) > 0 {
		fmt.Fprintln(c.Out)
		fmt.Fprintln(c.Out, lipgloss.Yellow.Render("You still have files with no content:"))
		for _, p := range pending {
			fmt.Fprintln(c.Out, " -", p)
		}
		if !utils.AskYesNo(lipgloss.Red.Render("Quit anyway? (y/N) > "), c.In, c.Out) {
			fmt.Fprintln(c.Out, lipgloss.Green.Render("Aborted. Keep going."))
			return false, nil
		}
	}
	return true, nil
}

// previewEntry shows the acquired content of entry idx; a view only, no
// state mutation and no checkpoint.
func (c *Controller) previewEntry(idx int) {
	if idx < 0 || idx >= c.State.Len() {
		fmt.Fprintln(c.Out)
		fmt.Fprintln(c.Out, lipgloss.Red.Render("Index out of range."))
		return
	}
	path := c.State.Files[idx]
	content, ok := c.State.Contents[path]
	if !ok {
		fmt.Fprintln(c.Out)
		fmt.Fprintln(c.Out, lipgloss.Yellow.Render(fmt.Sprintf("[%s] has no acquired content yet.", path)))
		return
	}

	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, lipgloss.Bold.Render(fmt.Sprintf("--- %s ---", path)))
	if err := utils.HighlightPreview(c.Out, path, content, c.Theme); err != nil {
		c.Logger.Warn("preview highlight failed", zap.String("path", path), zap.Error(err))
	}
	if !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(c.Out)
	}
	fmt.Fprintln(c.Out, lipgloss.Bold.Render("--- end ---"))
}

// renderScreen draws the status screen shown before each command.
func (c *Controller) renderScreen() {
	s := c.State
	total := s.Len()
	doneCount := s.DoneCount()
	nxt := s.NextFromCursor()

	nxtName := "(none)"
	if nxt != models.NoCursor {
		nxtName = s.Files[nxt]
	}

	overrideStr := ""
	switch c.override {
	case models.MethodDirect:
		overrideStr = " (next: AUTO-READ)"
	case models.MethodManual:
		overrideStr = " (next: PASTE)"
	}

	progressStyle := lipgloss.Yellow
	if doneCount == total {
		progressStyle = lipgloss.Green
	}

	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, lipgloss.Bold.Render("=============== Codebundle ==============="))
	fmt.Fprintf(c.Out, "Mode: %s%s\n", lipgloss.Cyan.Render(s.Mode.Label()), lipgloss.Dim.Render(overrideStr))
	fmt.Fprintf(c.Out, "Scanned files: %s\n", lipgloss.Cyan.Render(strconv.Itoa(total)))
	fmt.Fprintf(c.Out, "Scan roots: %s\n", lipgloss.Dim.Render(strings.Join(s.ScanRoots, " | ")))
	fmt.Fprintf(c.Out, "Output: %s\n", lipgloss.Cyan.Render(c.BundleFile))
	fmt.Fprintf(c.Out, "Progress: %s/%d  |  Next: %s\n",
		progressStyle.Render(strconv.Itoa(doneCount)), total, lipgloss.Yellow.Render(nxtName))
	fmt.Fprintf(c.Out, "End marker: %s\n", lipgloss.Cyan.Render(c.EndMarker))
	fmt.Fprintf(c.Out, "Cmd: %s | %s | %s | %s | %s | %s | %s | %s\n",
		lipgloss.Cyan.Render("[Enter]=next"),
		lipgloss.Cyan.Render("[number]=jump"),
		lipgloss.Cyan.Render("a=auto-read(next)"),
		lipgloss.Cyan.Render("p=paste(next)"),
		lipgloss.Cyan.Render("v N=view"),
		lipgloss.Cyan.Render("m=mode"),
		lipgloss.Cyan.Render("r=remaining"),
		lipgloss.Cyan.Render("q=quit"))
	fmt.Fprintln(c.Out, lipgloss.Dim.Render("Tip: 'a 12' or 'p 12' is also supported."))
	fmt.Fprintln(c.Out, "---------------------------------------------------")

	for i, path := range s.Files {
		if s.PendingOnly && s.Done[i] {
			continue
		}

		mark := "[ ]"
		if s.Done[i] {
			mark = "[x]"
		}
		line := fmt.Sprintf("%2d : %s %s", i, mark, path)

		switch {
		case s.Done[i]:
			fmt.Fprintln(c.Out, lipgloss.Dim.Render(lipgloss.Green.Render(line)))
		case i == nxt:
			fmt.Fprintln(c.Out, lipgloss.Yellow.Render(lipgloss.Bold.Render(line+"  <-- next")))
		default:
			fmt.Fprintln(c.Out, line)
		}
	}

	if s.PendingOnly {
		fmt.Fprintln(c.Out, "---------------------------------------------------")
		fmt.Fprintln(c.Out, lipgloss.Dim.Render("(remaining-only view ON)"))
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
