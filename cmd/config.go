// file: cmd/config.go
// version: 1.0.0
// guid: a2a92e2d-3c87-49f1-9304-f48875abb678

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jdfalk/book-cataloger/internal/config"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Show or persist the effective configuration",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			runConfigShow()
		},
	}

	configSaveCmd = &cobra.Command{
		Use:   "save",
		Short: "Write the effective configuration to the config file",
		Long: `Write the merged configuration (flags, environment, defaults) to the
config file next to the cache, so API tokens don't have to be passed on
every invocation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SaveConfigToFile(); err != nil {
				return err
			}
			fmt.Printf("Configuration saved to: %s\n", config.ConfigFilePath())
			return nil
		},
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
}

func runConfigShow() {
	fmt.Printf("Cache dir:        %s\n", config.AppConfig.CacheDir)
	fmt.Printf("Cache backend:    %s\n", config.AppConfig.CacheBackend)
	fmt.Printf("Cache TTL:        %s\n", config.AppConfig.CacheTTL)
	fmt.Printf("Image dir:        %s\n", config.AppConfig.ImageDir)
	fmt.Printf("Log level:        %s\n", config.AppConfig.LogLevel)
	fmt.Printf("Contact:          %s\n", orUnset(config.AppConfig.Contact))
	fmt.Printf("Hardcover token:  %s\n", secretStatus(config.AppConfig.APIKeys.HardcoverToken))
	fmt.Printf("Google Books key: %s\n", secretStatus(config.AppConfig.APIKeys.GoogleBooksKey))
	fmt.Printf("User-Agent:       %s\n", config.UserAgent())
	fmt.Printf("Config file:      %s\n", config.ConfigFilePath())
}

func orUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

// secretStatus never echoes token material.
func secretStatus(v string) string {
	if v == "" {
		return "(not set)"
	}
	return "(set)"
}
