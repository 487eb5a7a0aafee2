// Package clustercmder provides the cluster command for initializing the
// distributed-compute cluster client.
package clustercmder

import (
	"github.com/spf13/cobra"
)

const clusterLongDesc string = `Manage the distributed-compute cluster connection.

  recall cluster init                  Start a local head node
  recall cluster init --force-remote   Connect to cluster.remote_endpoint`

const clusterShortDesc string = "Manage the compute cluster connection"

func NewClusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: clusterShortDesc,
		Long:  clusterLongDesc,
	}

	cmd.AddCommand(newInitCmd())

	return cmd
}
