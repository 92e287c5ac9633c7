package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukex/taskflow/pkg/models"
)

func TestPrior_FirstContent(t *testing.T) {
	prior := Prior{
		{NodeID: "in", Success: true},
		{NodeID: "cat", Payload: map[string]any{models.PayloadKeyCategory: "bug"}},
		{NodeID: "gen", Payload: map[string]any{models.PayloadKeyContent: "first"}},
		{NodeID: "ana", Payload: map[string]any{models.PayloadKeyContent: "second"}},
	}

	content, ok := prior.FirstContent()
	assert.True(t, ok)
	assert.Equal(t, "first", content)

	_, ok = Prior{}.FirstContent()
	assert.False(t, ok)
}
