package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatd/pkg/types"
)

func history(n int) []types.Message {
	out := make([]types.Message, 0, n)
	for i := 0; i < n; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		out = append(out, types.Message{Role: role, Content: fmt.Sprintf("m%d", i)})
	}
	return out
}

func TestAssembleEmptyHistory(t *testing.T) {
	got := Assemble("Be brief.", nil, "hi")
	assert.Equal(t, "System: Be brief.\n\nUser: hi\nAssistant: ", got)
}

func TestAssembleLabelsRoles(t *testing.T) {
	got := Assemble("P", history(2), "next")
	assert.Equal(t, "System: P\n\nUser: m0\nAssistant: m1\nUser: next\nAssistant: ", got)
}

func TestAssembleKeepsLastTenOnly(t *testing.T) {
	got := Assemble("P", history(15), "new")
	body := strings.TrimPrefix(got, "System: P\n\n")
	lines := strings.Split(strings.TrimSuffix(body, "Assistant: "), "\n")
	// 10 history lines, the new user line, then the trailing empty split.
	require.Len(t, lines, 12)
	assert.Equal(t, "Assistant: m5", lines[0])
	assert.Equal(t, "User: m14", lines[9])
	assert.Equal(t, "User: new", lines[10])
	assert.NotContains(t, got, "m4\n")
}

func TestAssembleDeterministic(t *testing.T) {
	h := history(7)
	assert.Equal(t, Assemble("x", h, "y"), Assemble("x", h, "y"))
}

func TestWindow(t *testing.T) {
	h := history(4)
	assert.Len(t, Window(h, 10), 4)
	w := Window(h, 2)
	require.Len(t, w, 2)
	assert.Equal(t, "m2", w[0].Content)
	w[0].Content = "changed"
	assert.Equal(t, "m2", h[2].Content)
	assert.Empty(t, Window(h, 0))
}
