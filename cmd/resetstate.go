package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"codebundle/constants/lipgloss"
	"codebundle/session"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// resetStateCmd represents the reset-state command
var resetStateCmd = &cobra.Command{
	Use:   "reset-state",
	Short: "Delete the saved session checkpoint",
	Long: `The 'reset-state' command removes the session checkpoint file.
This discards all acquired content and progress flags; the next run starts
a fresh session. Use it when you want to rebuild a bundle from scratch or
when the saved state belongs to a project layout that no longer exists.`,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		handleResetStateCommand(force, cmd)
	},
}

func init() {
	resetStateCmd.Flags().BoolP("force", "f", false, "Delete without confirmation")

	rootCmd.AddCommand(resetStateCmd)
}

func handleResetStateCommand(force bool, cmd *cobra.Command) {
	rootDependencies := handleRootCommand(cmd)
	if rootDependencies == nil {
		return
	}

	store := session.NewFileCheckpointStore(rootDependencies.Config.Output.StateFile, rootDependencies.Logger)
	if !store.Exists() {
		fmt.Println(lipgloss.Yellow.Render("No saved session state found."))
		return
	}

	if !force {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Delete the saved session state? This discards all acquired content. (y/N): ")
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println(lipgloss.Yellow.Render("Reset cancelled."))
			return
		}
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true)

	spinnerInstance, _ := spinner.Start("Deleting session state...")

	err := store.Delete()

	spinnerInstance.Stop()
	fmt.Print("\r")

	if err != nil {
		fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error deleting session state: %v", err)))
		return
	}
	fmt.Println(lipgloss.Green.Render("✓ Session state has been reset!"))
}
