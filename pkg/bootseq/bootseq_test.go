package bootseq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elektrobit/rupdate/pkg/fixedstring"
	"github.com/Elektrobit/rupdate/pkg/partconfig"
	"github.com/Elektrobit/rupdate/pkg/statemachine"
	"github.com/Elektrobit/rupdate/pkg/updateenv"
	"github.com/Elektrobit/rupdate/pkg/variant"
)

type memStorage struct{ buf []byte }

func (m *memStorage) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, m.buf[off:]), nil
}

func (m *memStorage) WriteAt(p []byte, off int64) (int, error) {
	return copy(m.buf[off:], p), nil
}

func newTestEnv(t *testing.T) *updateenv.Environment {
	t.Helper()
	storage := &memStorage{buf: make([]byte, 8192)}
	env := updateenv.NewEnvironment(storage, [updateenv.NumSlots]int64{0, 4096}, 4096)

	fs, err := fixedstring.New("rootfs")
	require.NoError(t, err)
	pc := &partconfig.PartitionConfig{
		Sets: []partconfig.SetDescriptor{{ID: 1, Name: fs}},
		Partitions: []partconfig.PartitionDescriptor{
			{Variant: variant.A, SetID: 1},
			{Variant: variant.B, SetID: 1},
		},
	}
	require.NoError(t, env.Initialize(updateenv.NewState(pc, 0)))
	return env
}

// Scenario 2, spanning userspace and boot sides via the shared Environment.
func TestCommitBootFinishThroughEnvironment(t *testing.T) {
	env := newTestEnv(t)

	current, err := env.GetCurrentState()
	require.NoError(t, err)

	installed, err := statemachine.Update(current, []string{"rootfs"}, true)
	require.NoError(t, err)
	require.NoError(t, env.WriteNextState(installed))

	current, err = env.GetCurrentState()
	require.NoError(t, err)
	committed, err := statemachine.Commit(current, 3)
	require.NoError(t, err)
	require.NoError(t, env.WriteNextState(committed))

	testing1, err := Boot(env)
	require.NoError(t, err)
	assert.Equal(t, updateenv.Testing, testing1.State)
	sel, err := testing1.Selection("rootfs")
	require.NoError(t, err)
	assert.Equal(t, variant.B, sel.Active)

	current, err = env.GetCurrentState()
	require.NoError(t, err)
	finished, err := statemachine.Finish(current)
	require.NoError(t, err)
	require.NoError(t, env.WriteNextState(finished))

	final, err := env.GetCurrentState()
	require.NoError(t, err)
	assert.Equal(t, updateenv.Normal, final.State)
}

// Scenario 3: one boot into Testing, then three boots with no finish; the
// third of those exhausts the retries and reverts automatically.
func TestAutomaticRevertThroughEnvironment(t *testing.T) {
	env := newTestEnv(t)

	current, _ := env.GetCurrentState()
	installed, err := statemachine.Update(current, []string{"rootfs"}, true)
	require.NoError(t, err)
	require.NoError(t, env.WriteNextState(installed))

	current, _ = env.GetCurrentState()
	committed, err := statemachine.Commit(current, 3)
	require.NoError(t, err)
	require.NoError(t, env.WriteNextState(committed))

	for i := 0; i < 4; i++ {
		_, err := Boot(env)
		require.NoError(t, err)
	}

	final, err := env.GetCurrentState()
	require.NoError(t, err)
	assert.Equal(t, updateenv.Normal, final.State)
	sel, err := final.Selection("rootfs")
	require.NoError(t, err)
	assert.Equal(t, variant.A, sel.Active)
	assert.False(t, sel.Affected)
	assert.False(t, sel.Rollback)
}

func TestBootNoOpOnNormalStillWrites(t *testing.T) {
	env := newTestEnv(t)
	before, err := env.GetCurrentState()
	require.NoError(t, err)

	after, err := Boot(env)
	require.NoError(t, err)
	assert.Equal(t, before.State, after.State)

	// A second read must see the advanced revision, proving Boot performed
	// a real write even for a no-op transition.
	got, err := env.GetCurrentState()
	require.NoError(t, err)
	assert.Equal(t, before.Revision+1, got.Revision)
}
