package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestCompleteConfigKeys(t *testing.T) {
	t.Parallel()

	keys, directive := completeConfigKeys(nil, nil, "staging.")
	assert.Equal(t, []string{"staging.dir", "staging.purge_age", "staging.purge_on_start"}, keys)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	keys, _ = completeConfigKeys(nil, []string{"concurrency"}, "")
	assert.Empty(t, keys)
}

func TestCompleteProgressModes(t *testing.T) {
	t.Parallel()

	modes, _ := completeProgressModes(nil, nil, "")
	assert.Equal(t, []string{"auto", "tty", "plain"}, modes)

	modes, _ = completeProgressModes(nil, nil, "p")
	assert.Equal(t, []string{"plain"}, modes)
}
