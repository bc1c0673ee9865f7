package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func clearEnvSlots(t *testing.T) {
	t.Helper()
	for _, k := range []string{"", "_2", "_3", "_4"} {
		t.Setenv("TRAVEL_COMPOSITOR_USERNAME"+k, "")
		t.Setenv("TRAVEL_COMPOSITOR_PASSWORD"+k, "")
		t.Setenv("TRAVEL_COMPOSITOR_MICROSITE_ID"+k, "")
	}
	t.Setenv("TRAVEL_COMPOSITOR_TENANTS_FILE", "")
}

func setSlot(t *testing.T, suffix, user, pass, site string) {
	t.Helper()
	t.Setenv("TRAVEL_COMPOSITOR_USERNAME"+suffix, user)
	t.Setenv("TRAVEL_COMPOSITOR_PASSWORD"+suffix, pass)
	t.Setenv("TRAVEL_COMPOSITOR_MICROSITE_ID"+suffix, site)
}

func TestFromEnvSlots(t *testing.T) {
	clearEnvSlots(t)
	setSlot(t, "", "agent1", "secret1", "site-one")
	setSlot(t, "_3", "agent3", "secret3", "site-three")

	reg := FromEnv(testLogger())
	assert.Equal(t, []int{1, 3}, reg.List())

	c, err := reg.Get(3)
	require.NoError(t, err)
	assert.Equal(t, "site-three", c.MicrositeID)
	assert.Equal(t, "agent3", c.Username)
}

func TestIncompleteSlotExcluded(t *testing.T) {
	clearEnvSlots(t)
	setSlot(t, "", "agent1", "secret1", "site-one")
	// slot 2 lacks the microsite id
	t.Setenv("TRAVEL_COMPOSITOR_USERNAME_2", "agent2")
	t.Setenv("TRAVEL_COMPOSITOR_PASSWORD_2", "secret2")

	reg := FromEnv(testLogger())
	assert.Equal(t, []int{1}, reg.List())

	_, err := reg.Get(2)
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestNoSlotsConfigured(t *testing.T) {
	clearEnvSlots(t)
	reg := FromEnv(testLogger())
	assert.Empty(t, reg.List())
}

func TestTenantsFile(t *testing.T) {
	clearEnvSlots(t)
	setSlot(t, "", "agent1", "secret1", "site-one")

	dir := t.TempDir()
	path := filepath.Join(dir, "tenants.yaml")
	body := `tenants:
  - microsite_id: site-extra
    username: extra
    password: hush
  - microsite_id: incomplete-no-password
    username: nope
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("TRAVEL_COMPOSITOR_TENANTS_FILE", path)

	reg := FromEnv(testLogger())
	assert.Equal(t, []int{1, 5}, reg.List())

	c, err := reg.Get(5)
	require.NoError(t, err)
	assert.Equal(t, "site-extra", c.MicrositeID)
}

func TestNewStaticDropsDuplicatesAndIncomplete(t *testing.T) {
	reg := NewStatic(
		TenantConfig{ConfigID: 2, MicrositeID: "b", Username: "u", Password: "p"},
		TenantConfig{ConfigID: 1, MicrositeID: "a", Username: "u", Password: "p"},
		TenantConfig{ConfigID: 2, MicrositeID: "dup", Username: "u", Password: "p"},
		TenantConfig{ConfigID: 3, MicrositeID: "", Username: "u", Password: "p"},
	)
	assert.Equal(t, []int{1, 2}, reg.List())

	c, err := reg.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "b", c.MicrositeID)
}
