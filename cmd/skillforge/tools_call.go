package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/webloom/skillforge/pkg/gateway"
	"github.com/webloom/skillforge/pkg/presenter"
)

var toolsCallCmd = &cobra.Command{
	Use:   "call SERVER TOOL",
	Short: "Call one tool directly from the CLI",
	Long: `Call a tool with JSON arguments, e.g.:

  skillforge tools call inventory product_count --args '{"product_id": "B002"}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		serverID, toolName := args[0], args[1]

		argsJSON, _ := cmd.Flags().GetString("args")
		var argsMap map[string]any
		if err := json.Unmarshal([]byte(argsJSON), &argsMap); err != nil {
			return errors.Wrap(err, "invalid JSON arguments")
		}

		mgr := gateway.NewManager()
		defer mgr.DisconnectAll(context.Background())

		cfg, err := gateway.ConfigFromViper()
		if err != nil {
			return err
		}
		sc, ok := cfg.Servers[serverID]
		if !ok {
			return errors.Errorf("tool server %q is not configured", serverID)
		}
		if !mgr.Connect(ctx, serverID, sc) {
			return errors.Errorf("failed to connect to tool server %q", serverID)
		}

		key := fmt.Sprintf("%s_%s", serverID, toolName)
		presenter.Info(fmt.Sprintf("Calling %s...", key))
		result, err := mgr.Call(ctx, key, argsMap)
		if err != nil {
			return err
		}

		rendered, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to render result")
		}
		presenter.Section("Result")
		fmt.Println(string(rendered))
		return nil
	},
}

func init() {
	toolsCallCmd.Flags().String("args", "{}", "Tool arguments as JSON")
}
