package cli

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/ferry/cmd/ferry/cli/config"
)

func init() {
	configSetCmd.ValidArgsFunction = completeConfigKeys
}

// completeProgressModes suggests the --progress values.
func completeProgressModes(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, mode := range []string{"auto", "tty", "plain"} {
		if strings.HasPrefix(mode, toComplete) {
			out = append(out, mode)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeConfigKeys suggests known configuration keys for `config set`.
// Only the key (first argument) is completed.
func completeConfigKeys(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	// Completion runs without PersistentPreRunE, so defaults are not loaded.
	v := viper.New()
	config.SetDefaults(v)

	var keys []string
	for _, key := range v.AllKeys() {
		if strings.HasPrefix(key, toComplete) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, cobra.ShellCompDirectiveNoFileComp
}
