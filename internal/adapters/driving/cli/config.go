package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jwbth/talkwatch/internal/adapters/driven/config/file"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage talkwatch configuration",
	Long: `View and set configuration values.

Common keys:
  api.endpoint                  api.php URL of the wiki
  watch.page                    title of the watched page
  viewer.name                   your user name, for relevance filtering
  viewer.muted_authors          authors whose comments are never relevant
  viewer.subscribed_headlines   section headlines to always flag`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Sets a configuration value. Comma-separated values are stored as a
list for list-valued keys such as viewer.muted_authors.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	rootCmd.AddCommand(configCmd)
}

// listValuedKeys are stored as string slices.
var listValuedKeys = map[string]bool{
	file.KeyMutedAuthors:        true,
	file.KeySubscribedHeadlines: true,
}

func openConfigStore() error {
	if configStore != nil {
		return nil
	}
	cs, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	configStore = cs
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if err := openConfigStore(); err != nil {
		return err
	}

	values := configStore.All()
	if len(values) == 0 {
		cmd.Println("No configuration set.")
		return nil
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		cmd.Printf("%s = %v\n", key, values[key])
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if err := openConfigStore(); err != nil {
		return err
	}

	value, ok := configStore.Get(args[0])
	if !ok {
		return fmt.Errorf("key %q is not set", args[0])
	}
	cmd.Printf("%v\n", value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if err := openConfigStore(); err != nil {
		return err
	}

	key, raw := args[0], args[1]
	var value any = raw
	if listValuedKeys[key] {
		parts := strings.Split(raw, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		value = list
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("%s set.\n", key)
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	if err := openConfigStore(); err != nil {
		return err
	}

	if err := configStore.Delete(args[0]); err != nil {
		return fmt.Errorf("failed to unset %s: %w", args[0], err)
	}
	cmd.Printf("%s removed.\n", args[0])
	return nil
}
