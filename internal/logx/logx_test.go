package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForTagsRoleAndActorID(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	sub := l.For("passenger", 3)
	sub.Info().Msg("boarded")

	out := buf.String()
	assert.True(t, strings.Contains(out, `"role":"passenger"`))
	assert.True(t, strings.Contains(out, `"actor_id":3`))
	assert.True(t, strings.Contains(out, `"message":"boarded"`))
}

func TestOpenAppendsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sim.log"

	l1, err := Open(path)
	assert.NoError(t, err)
	log1 := l1.For("captain", 0)
	log1.Info().Msg("first")
	assert.NoError(t, l1.Close())

	l2, err := Open(path)
	assert.NoError(t, err)
	log2 := l2.For("captain", 0)
	log2.Info().Msg("second")
	assert.NoError(t, l2.Close())
}
