package domainscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnemolabs/mnemo/pkg/cliui"
	"github.com/mnemolabs/mnemo/pkg/dotdir"
)

const useLongDesc string = `Select the workspace domain.

Saves the given domain as the default for remember, recall, and consolidate
in this workspace. The domain does not have to exist yet; storing the first
memory under it creates it.

If no domain is provided, clears the selection so commands require an
explicit --domain again.

Examples:
  mnemo domains use professional    Select a workspace domain
  mnemo domains use                 Clear the selection`

const useShortDesc string = "Select the workspace domain"

func newUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use [domain]",
		Short: useShortDesc,
		Long:  useLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			domain := ""
			if len(args) > 0 {
				domain = args[0]
			}
			return runUse(domain, configDir)
		},
	}

	return cmd
}

func runUse(domain, configDir string) error {
	manager := dotdir.NewManager()

	if domain == "" {
		if err := manager.ClearWorkspace(configDir); err != nil {
			return fmt.Errorf("clearing workspace state: %w", err)
		}
		fmt.Println("Workspace domain cleared. Commands need an explicit --domain again.")
		return nil
	}

	state := &dotdir.WorkspaceState{Domain: domain}
	if err := manager.SaveWorkspace(state, configDir); err != nil {
		return fmt.Errorf("saving workspace state: %w", err)
	}

	fmt.Printf("\n  %s Using domain %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(domain))
	return nil
}
