package cli

import (
	"context"
	"testing"

	"github.com/alexanderramin/dealroom/internal/teatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchModel_RendersSessionAndQuits(t *testing.T) {
	a, _ := testApp(t)
	id := seedNegotiation(t, a)
	_, err := executeCmd(t, a, "message", "send", "--as", investor, id, "Hello", "there")
	require.NoError(t, err)

	d := teatest.New(t, newWatchModel(context.Background(), a, id, owner, 0))
	d.DrainInit()

	view := d.View()
	assert.Contains(t, view, "NEGOTIATION")
	assert.Contains(t, view, "Hello there")
	assert.Contains(t, view, "watching")

	d.PressKey('q')
	assert.True(t, d.Quitting)
}

func TestWatchModel_NonPartySeesError(t *testing.T) {
	a, _ := testApp(t)
	id := seedNegotiation(t, a)

	d := teatest.New(t, newWatchModel(context.Background(), a, id, "stranger", 0))
	d.DrainInit()

	assert.True(t, d.Quitting)
	assert.Contains(t, d.View(), "you are not allowed")
}
