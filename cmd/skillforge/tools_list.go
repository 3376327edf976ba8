package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/webloom/skillforge/pkg/gateway"
	"github.com/webloom/skillforge/pkg/presenter"
)

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tool exposed by the configured servers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr := gateway.NewManager()
		defer mgr.DisconnectAll(context.Background())

		cfg, err := gateway.ConfigFromViper()
		if err != nil {
			return err
		}
		connected := mgr.ConnectAll(ctx, cfg)
		if connected == 0 {
			presenter.Warning("No tool servers connected")
			return nil
		}

		descriptors := mgr.Descriptors()
		presenter.Section(fmt.Sprintf("Tools (%d servers, %d tools)", connected, len(descriptors)))
		for _, d := range descriptors {
			presenter.Info(d.Signature())
			if d.Description != "" {
				presenter.Info("    " + d.Description)
			}
		}
		return nil
	},
}
