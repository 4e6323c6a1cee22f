package main

import (
	"github.com/spf13/cobra"

	"github.com/flier268/Minecraft-updater/internal/client/config"
)

// resolveConfigPath honors, in order: the --config flag, MCUPDATER_CONFIG_PATH
// and Minecraft_updater.json beside the executable.
func resolveConfigPath(cmd *cobra.Command) string {
	var flagValue string
	if cfgFlag := cmd.Flag("config"); cfgFlag != nil && cfgFlag.Changed {
		flagValue = cfgFlag.Value.String()
	}
	return config.DetermineConfigPath(flagValue, config.ExecutableDir())
}
