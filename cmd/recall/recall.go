// Package recallcmder
package recallcmder

import (
	"github.com/spf13/cobra"

	clustercmder "github.com/papercomputeco/recall/cmd/recall/cluster"
	configcmder "github.com/papercomputeco/recall/cmd/recall/config"
	methodscmder "github.com/papercomputeco/recall/cmd/recall/methods"
	searchcmder "github.com/papercomputeco/recall/cmd/recall/search"
	servecmder "github.com/papercomputeco/recall/cmd/recall/serve"
	versioncmder "github.com/papercomputeco/recall/cmd/version"
)

const recallLongDesc string = `Recall connects retrieval-augmented pipelines to their infrastructure.

It queries remote retrieval services (bm25, dense and hybrid search), serves
them behind an HTTP and MCP gateway, and initializes the distributed-compute
cluster those pipelines run on.

  recall search <query>    Query a retrieval service
  recall methods           List retrieval methods and their ports
  recall serve             Run the HTTP gateway with MCP mounted
  recall cluster init      Start or connect to the compute cluster
  recall config            Manage persistent configuration`

const recallShortDesc string = "Recall - retrieval service client and gateway"

func NewRecallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "recall",
		Short:        recallShortDesc,
		Long:         recallLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .recall/ config directory")

	// Add subcommands
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(methodscmder.NewMethodsCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(clustercmder.NewClusterCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
