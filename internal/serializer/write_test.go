package serializer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
)

func TestWriteProjects(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rdf")
	noRepo := sampleProject()
	noRepo.Meta.Name = "US000043"
	noRepo.Repo = ""

	written, err := WriteProjects([]*internal.Project{sampleProject(), noRepo}, RDFSerializer{Format: FormatTurtle}, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoRepo)
	assert.Contains(t, err.Error(), "oshwa/Acme/US000043")

	require.Equal(t, []string{filepath.Join(dir, "oshwa-acme-us000042.ttl")}, written)
	blob, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Contains(t, string(blob), "@prefix okh:")
}
