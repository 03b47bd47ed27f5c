// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"audiostream/internal/audio"
	"audiostream/internal/tui"
)

func newDevicesCommand() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"list"},
		Short:   "List available audio devices",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer func() { err = errors.Join(err, audio.Terminate()) }()

			if plain {
				return audio.ListDevices(cmd.OutOrStdout())
			}
			devices, err := audio.HostDevices()
			if err != nil {
				return err
			}
			in, out := audio.DefaultDeviceIDs()
			_, err = fmt.Fprint(cmd.OutOrStdout(), tui.RenderDevices(devices, in, out))
			return err
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Plain output including device latencies")
	return cmd
}
