package cli

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for warehouse.

To load completions:

Bash:
  $ source <(warehouse completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ warehouse completion bash > /etc/bash_completion.d/warehouse
  # macOS:
  $ warehouse completion bash > $(brew --prefix)/etc/bash_completion.d/warehouse

Zsh:
  $ source <(warehouse completion zsh)
  # To load completions for each session, execute once:
  $ warehouse completion zsh > "${fpath[1]}/_warehouse"

Fish:
  $ warehouse completion fish | source
  # To load completions for each session, execute once:
  $ warehouse completion fish > ~/.config/fish/completions/warehouse.fish

PowerShell:
  PS> warehouse completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
		return nil
	},
}
