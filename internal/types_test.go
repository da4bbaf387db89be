package internal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestClassificationCodeJSON(t *testing.T) {
	blob, err := json.Marshal(SingleCode("H"))
	require.NoError(t, err)
	assert.Equal(t, `"H"`, string(blob))

	blob, err = json.Marshal(CodeList([]string{"Arduino", "Sensors"}))
	require.NoError(t, err)
	assert.Equal(t, `["Arduino","Sensors"]`, string(blob))

	var c ClassificationCode
	require.NoError(t, json.Unmarshal([]byte(`["A","B"]`), &c))
	assert.True(t, c.List)
	assert.Equal(t, []string{"A", "B"}, c.Values())

	require.NoError(t, json.Unmarshal([]byte(`"B33Y"`), &c))
	assert.False(t, c.List)
	assert.Equal(t, "B33Y", c.Code)
}

func TestClassificationCodeYAML(t *testing.T) {
	type wrap struct {
		Code ClassificationCode `yaml:"code"`
	}
	blob, err := yaml.Marshal(wrap{Code: SingleCode("")})
	require.NoError(t, err)
	assert.Equal(t, "code: \"\"\n", string(blob))

	var w wrap
	require.NoError(t, yaml.Unmarshal([]byte("code:\n  - X\n  - Y\n"), &w))
	assert.Equal(t, []string{"X", "Y"}, w.Code.Values())
}

func TestFileExtensionAndStem(t *testing.T) {
	f := File{Path: "mech/Frame.STEP"}
	assert.Equal(t, ".step", f.Extension())
	assert.Equal(t, "Frame", f.Stem())

	f = File{Path: ".gitignore"}
	assert.Equal(t, "", f.Extension())
	assert.Equal(t, ".gitignore", f.Stem())
}

func TestProjectID(t *testing.T) {
	p := Project{Meta: ProjectMeta{Host: "certification.oshwa.org", Owner: "Acme", Name: "US000001"}}
	assert.Equal(t, "certification.oshwa.org/Acme/US000001", p.ID())
	p.Meta.Path = "/sub/dir/"
	assert.Equal(t, "certification.oshwa.org/Acme/US000001/sub/dir", p.ID())
}
