package manager

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatd/internal/manager/managertest"
)

func TestSwitchModelInstalled(t *testing.T) {
	fake := managertest.New(t)
	fake.SetModels("llama3.2", "mistral:7b")
	fake.SetGenerate(0, "Model switched successfully")
	pub := NewMemoryPublisher()
	m, _ := newTestManager(t, fake, func(c *ManagerConfig) { c.Publisher = pub })

	require.True(t, m.SwitchModel(testCtx(t), "mistral:7b"))
	assert.Equal(t, "mistral:7b", m.CurrentModel())
	assert.Equal(t, 0, fake.Calls("/api/pull"))
	gens := fake.Generates()
	require.Len(t, gens, 1)
	assert.Equal(t, switchProbePrompt, gens[0].Prompt)
	assert.Equal(t, "mistral:7b", gens[0].Model)
	require.Len(t, pub.Named(EventSwitchDone), 1)
	assert.Equal(t, "llama3.2", pub.Named(EventSwitchDone)[0].Fields["previous"])
}

func TestSwitchModelPullsMissing(t *testing.T) {
	fake := managertest.New(t)
	fake.SetModels("llama3.2")
	fake.SetPull(0, `{"status":"success"}`)
	m, _ := newTestManager(t, fake)

	require.True(t, m.SwitchModel(testCtx(t), "phi3"))
	assert.Equal(t, "phi3", m.CurrentModel())
	assert.Equal(t, 1, fake.Calls("/api/pull"))
}

func TestSwitchModelPullFailureKeepsCurrent(t *testing.T) {
	fake := managertest.New(t)
	fake.SetModels("llama3.2")
	fake.SetPull(0, `{"error":"pull model manifest: file does not exist"}`)
	m, _ := newTestManager(t, fake)

	assert.False(t, m.SwitchModel(testCtx(t), "nonexistent"))
	assert.Equal(t, "llama3.2", m.CurrentModel())
	assert.Equal(t, 0, fake.Calls("/api/generate"))
}

func TestSwitchModelBrokenProbeDoesNotCommit(t *testing.T) {
	fake := managertest.New(t)
	fake.SetModels("llama3.2", "broken")
	m, _ := newTestManager(t, fake)

	fake.SetGenerate(http.StatusInternalServerError, "")
	assert.False(t, m.SwitchModel(testCtx(t), "broken"))
	assert.Equal(t, "llama3.2", m.CurrentModel())

	fake.SetGenerate(0, "   ")
	assert.False(t, m.SwitchModel(testCtx(t), "broken"))
	assert.Equal(t, "llama3.2", m.CurrentModel())
}

func TestSwitchModelRuntimeDown(t *testing.T) {
	fake := managertest.New(t)
	fake.SetDown(true)
	m, _ := newTestManager(t, fake, func(c *ManagerConfig) {
		c.Launcher = LauncherFunc(func(context.Context) error { return nil })
	})
	assert.False(t, m.SwitchModel(testCtx(t), "phi3"))
	assert.Equal(t, "llama3.2", m.CurrentModel())
}

func TestSwitchModelConcurrentEndsOnOneOfThem(t *testing.T) {
	fake := managertest.New(t)
	fake.SetModels("a", "b", "c")
	m, _ := newTestManager(t, fake)

	var wg sync.WaitGroup
	for _, name := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			assert.True(t, m.SwitchModel(testCtx(t), n))
		}(name)
	}
	wg.Wait()
	assert.Contains(t, []string{"a", "b", "c"}, m.CurrentModel())
}

func TestBestModelForTask(t *testing.T) {
	fake := managertest.New(t)
	fake.SetModels("llama3.2", "deepseek-coder:6.7b")
	m, _ := newTestManager(t, fake, func(c *ManagerConfig) {
		c.Preferences = map[string][]string{
			"coding":   {"codellama:7b", "deepseek-coder:6.7b"},
			"creative": {"mistral:7b"},
		}
	})

	assert.Equal(t, "deepseek-coder:6.7b", m.BestModelForTask(testCtx(t), "coding"))
	assert.Equal(t, 0, fake.Calls("/api/pull"))

	fake.SetPull(0, `{"status":"success"}`)
	assert.Equal(t, "mistral:7b", m.BestModelForTask(testCtx(t), "Creative"))

	fake.SetPull(http.StatusInternalServerError)
	m.cfg.Preferences["math"] = []string{"qwen2-math"}
	assert.Equal(t, "llama3.2", m.BestModelForTask(testCtx(t), "math"))

	assert.Equal(t, "llama3.2", m.BestModelForTask(testCtx(t), "unknown-task"))
}
