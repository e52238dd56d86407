// Package mnemocmder
package mnemocmder

import (
	"github.com/spf13/cobra"

	accesscmder "github.com/mnemolabs/mnemo/cmd/mnemo/access"
	configcmder "github.com/mnemolabs/mnemo/cmd/mnemo/config"
	consolidatecmder "github.com/mnemolabs/mnemo/cmd/mnemo/consolidate"
	domainscmder "github.com/mnemolabs/mnemo/cmd/mnemo/domains"
	initcmder "github.com/mnemolabs/mnemo/cmd/mnemo/init"
	recallcmder "github.com/mnemolabs/mnemo/cmd/mnemo/recall"
	remembercmder "github.com/mnemolabs/mnemo/cmd/mnemo/remember"
	seedcmder "github.com/mnemolabs/mnemo/cmd/mnemo/seed"
	versioncmder "github.com/mnemolabs/mnemo/cmd/version"
)

const mnemoLongDesc string = `Mnemo is layered memory for your agents.

Store what happened, recall it later:
  mnemo remember "Customer prefers email over phone" --domain professional
  mnemo recall "how should we contact the customer"

Promote recurring experiences into durable concepts:
  mnemo consolidate --domain professional`

const mnemoShortDesc string = "Mnemo - Layered Agent Memory"

func NewMnemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mnemo",
		Short: mnemoShortDesc,
		Long:  mnemoLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .mnemo directory location")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(remembercmder.NewRememberCmd())
	cmd.AddCommand(recallcmder.NewRecallCmd())
	cmd.AddCommand(consolidatecmder.NewConsolidateCmd())
	cmd.AddCommand(accesscmder.NewAccessCmd())
	cmd.AddCommand(domainscmder.NewDomainsCmd())
	cmd.AddCommand(seedcmder.NewSeedCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
